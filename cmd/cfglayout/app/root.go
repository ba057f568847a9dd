// Package app provides the commands of the cfglayout command-line application.
package app

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// logger is replaced in PersistentPreRun once flags are parsed.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var debug bool
	rootCmd := &cobra.Command{
		Use:               "cfglayout",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Migrate and convert versioned configuration files",
		Long: `cfglayout keeps user-edited configuration files alive across schema changes.
It merges a file with the defaults recorded at last write and the defaults of the
current schema, and converts between the internal XML document and the
human-editable flat format.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	return rootCmd
}
