package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/planner"
	"github.com/flowboardhq/flowboard/internal/util"
	"github.com/spf13/cobra"
)

var (
	planBoard string
	planJSON  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the wave execution plan",
	Long: `Group pending tasks into waves: every task in a wave has all of its
blocking dependencies satisfied by earlier waves or already-done tasks.
Tasks whose dependencies can never complete are listed as stuck.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planBoard, "board", "", "restrict the plan to one board")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "emit the plan as JSON")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := loadGraph(cmd.Context(), st, planBoard)
	if err != nil {
		return err
	}

	plan := planner.Compute(g, g.CompletedSet())

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	printPlan(os.Stdout, g, plan)
	return nil
}

func printPlan(w io.Writer, g *graph.Graph, plan *planner.Plan) {
	if plan.TaskCount() == 0 && len(plan.Stuck) == 0 {
		fmt.Fprintln(w, "Nothing to schedule")
		return
	}

	for i, wave := range plan.Waves {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Wave %d", i+1)))
		for _, id := range wave {
			fmt.Fprintf(w, "  %s%s\n", id, taskLabel(g, id))
		}
	}

	if len(plan.Stuck) > 0 {
		fmt.Fprintln(w, failStyle.Render("Stuck"))
		for _, id := range plan.Stuck {
			reason := "blocked by a stuck dependency"
			if missing := g.Dangling(id); len(missing) > 0 {
				reason = "waiting on: " + strings.Join(missing, ", ")
			}
			fmt.Fprintf(w, "  %s%s %s\n", id, taskLabel(g, id), dimStyle.Render("("+reason+")"))
		}
	}
}

// taskLabel renders a dimmed title suffix for known tasks, empty otherwise.
func taskLabel(g *graph.Graph, id string) string {
	t := g.Node(id)
	if t == nil || t.Title == "" {
		return ""
	}
	return dimStyle.Render("  " + util.TruncateString(t.Title, 60))
}
