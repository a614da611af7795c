package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ytget/mediaq/internal/history"
	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/session"
)

const statusHistoryLimit = 10

func newStatusCommand(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show unfinished session jobs and recent history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := *dataDir
			if dir == "" {
				base, err := os.UserConfigDir()
				if err != nil {
					return fmt.Errorf("resolve config dir: %w", err)
				}
				dir = filepath.Join(base, "mediaq")
			}

			snap := session.Load(filepath.Join(dir, sessionFileName))
			hist, err := history.NewStore(filepath.Join(dir, historyFileName))
			if err != nil {
				return err
			}
			records, err := hist.List()
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), snap, records)
			return nil
		},
	}
}

// printStatus renders the snapshot counts and the most recent history
// rows.
func printStatus(w io.Writer, snap session.Snapshot, records []model.JobRecord) {
	counts := make(map[model.JobStatus]int)
	for _, item := range snap.Items {
		if item.Record == nil {
			continue
		}
		counts[item.Record.Status]++
	}

	fmt.Fprintf(w, "session: %d unfinished job(s)\n", len(snap.Items))
	for _, status := range []model.JobStatus{
		model.JobStatusPending,
		model.JobStatusDownloading,
		model.JobStatusProcessing,
		model.JobStatusCancelling,
	} {
		if n := counts[status]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", status, n)
		}
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "history: empty")
		return
	}
	fmt.Fprintf(w, "history: %d record(s), most recent:\n", len(records))
	for i, rec := range records {
		if i >= statusHistoryLimit {
			break
		}
		line := fmt.Sprintf("  %-10s %s", rec.Status, truncate(rec.DisplayTitle(), 60))
		if rec.Status == model.JobStatusError && rec.LastError != "" {
			line += " (" + truncate(rec.LastError, 40) + ")"
		}
		fmt.Fprintln(w, line)
	}
}
