package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytget/mediaq/internal/session"
)

func newResumeCommand(dataDir *string) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Re-queue unfinished jobs from the last session and wait for them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*dataDir, concurrency)
			if err != nil {
				return err
			}
			defer app.Close()

			snap := session.Load(app.SessionPath())
			if len(snap.Items) == 0 {
				fmt.Println("no unfinished jobs to resume")
				return nil
			}

			restored := session.Restore(snap, app.History, app.SubmitWithID)
			if len(restored) == 0 {
				fmt.Println("all snapshot jobs already finished")
				return nil
			}

			fmt.Printf("resumed %d job(s)\n", len(restored))
			app.Wait()
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Parallel download limit for this run (default: settings)")
	return cmd
}
