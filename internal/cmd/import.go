package cmd

import (
	"context"
	"fmt"

	"github.com/flowboardhq/flowboard/internal/errors"
	"github.com/flowboardhq/flowboard/internal/graph"
	"github.com/flowboardhq/flowboard/internal/ingest"
	"github.com/flowboardhq/flowboard/internal/store"
	"github.com/spf13/cobra"
)

var importBoard string

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import tasks from a JSON or YAML file",
	Long: `Validate a task-set file and load it into the store. JSON input is
checked against the task-set schema; YAML goes through the same field
validation. Tasks already in the store are left untouched and reported.
The imported set is rejected as a whole if it contains a dependency
cycle.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importBoard, "board", "", "board for tasks that do not name one")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	set, err := ingest.LoadFile(args[0])
	if err != nil {
		return err
	}
	if importBoard != "" {
		for _, t := range set.Tasks {
			if t.BoardID == "" {
				t.BoardID = importBoard
			}
		}
	}

	// Reject cyclic sets before touching the store.
	if _, err := graph.Build(set.Tasks); err != nil {
		return err
	}

	created, skipped, err := importTasks(cmd.Context(), st, set)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d task(s)\n", created)
	if skipped > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Skipped %d already present", skipped)))
	}
	return nil
}

// importTasks creates each task, counting duplicates as skips rather than
// failing the whole import.
func importTasks(ctx context.Context, st store.Store, set *ingest.TaskSet) (created, skipped int, err error) {
	for _, t := range set.Tasks {
		switch err := st.CreateTask(ctx, t); {
		case err == nil:
			created++
		case errors.Is(err, errors.ErrDuplicateID):
			skipped++
		default:
			return created, skipped, fmt.Errorf("failed to import task %s: %w", t.ID, err)
		}
	}
	return created, skipped, nil
}
