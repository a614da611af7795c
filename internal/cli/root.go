package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const cliExecutable = "mediaq"

// Version is stamped at build time via -ldflags "-X ...cli.Version=X.Y.Z".
var Version = "dev"

// NewRootCommand constructs the top-level mediaq command, wiring global
// flags and logging setup.
func NewRootCommand() *cobra.Command {
	var (
		dataDir        string
		verbosityCount int
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "mediaq is a media download queue manager built on yt-dlp",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			switch {
			case verbosityCount <= 0:
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			case verbosityCount == 1:
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			default:
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the mediaq data directory (settings, history, session)")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")

	cmd.AddCommand(newDownloadCommand(&dataDir))
	cmd.AddCommand(newResumeCommand(&dataDir))
	cmd.AddCommand(newStatusCommand(&dataDir))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}
