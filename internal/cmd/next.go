package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/recommend"
	"github.com/flowboardhq/flowboard/internal/task"
	"github.com/flowboardhq/flowboard/internal/util"
	"github.com/spf13/cobra"
)

var (
	nextAssignee string
	nextStatus   string
	nextBoard    string
	nextAll      bool
	nextJSON     bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Recommend the next task to pick up",
	Long: `Score every actionable task by priority, due-date urgency, how many
other tasks it unblocks, and whether it is already in progress. Filters
accept glob patterns, e.g. --assignee 'alice*'.`,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVar(&nextAssignee, "assignee", "", "filter by assignee (glob)")
	nextCmd.Flags().StringVar(&nextStatus, "status", "", "filter by status")
	nextCmd.Flags().StringVar(&nextBoard, "board", "", "filter by board (glob)")
	nextCmd.Flags().BoolVar(&nextAll, "all", false, "rank every candidate instead of the top one")
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "emit recommendations as JSON")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := loadGraph(cmd.Context(), st, "")
	if err != nil {
		return err
	}

	engine := recommend.New(cfg.Recommend.Weights)
	filters := recommend.Filters{
		Assignee: nextAssignee,
		Status:   task.Status(nextStatus),
		Board:    nextBoard,
	}

	recs, err := engine.RankAll(g, g.CompletedSet(), filters, time.Now())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		if nextJSON {
			fmt.Println("[]")
			return nil
		}
		return errors.ErrNoCandidates
	}
	if !nextAll {
		recs = recs[:1]
	}

	if nextJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	for _, rec := range recs {
		printRecommendation(rec)
	}
	return nil
}

func printRecommendation(rec recommend.Recommendation) {
	level := string(rec.Score.Level)
	line := fmt.Sprintf("%s %s  %s",
		levelStyle(level).Render(strings.ToUpper(level)),
		headerStyle.Render(rec.Task.ID),
		rec.Task.Title)
	fmt.Println(util.TruncateANSI(line, 100))
	fmt.Printf("  score %.2f", rec.Score.Value)
	if len(rec.Score.Reasons) > 0 {
		fmt.Printf("  %s", dimStyle.Render(strings.Join(rec.Score.Reasons, "; ")))
	}
	fmt.Println()
}
