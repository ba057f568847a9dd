package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Marco-Zechner/SpaceEngineers-ConfigAPI-sub001/configapi"
)

type normalizeOptions struct {
	typeName    string
	current     string
	oldDefaults string
	newDefaults string
	defaultsOut string
	write       bool
}

func newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Migrate a config document to the current schema defaults",
		Long: `normalize merges the current document with the defaults recorded at last write
(--old) and the defaults of the current schema (--new). Untouched values follow the new
defaults, edited values are kept, unknown fields are dropped.

Without --write the normalized document is printed. With --write it replaces --current,
after copying the original to <current>.bak when fields were dropped or reset.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNormalize(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.typeName, "type", "", "Config type name used as root element")
	cmd.Flags().StringVar(&opts.current, "current", "", "Current config document")
	cmd.Flags().StringVar(&opts.oldDefaults, "old", "", "Defaults recorded when the document was last written")
	cmd.Flags().StringVar(&opts.newDefaults, "new", "", "Defaults of the current schema")
	cmd.Flags().StringVar(&opts.defaultsOut, "defaults-out", "", "Where to record the normalized defaults")
	cmd.Flags().BoolVar(&opts.write, "write", false, "Write the result back to --current")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func runNormalize(cmd *cobra.Command, opts normalizeOptions) error {
	current, err := readOptional(opts.current)
	if err != nil {
		return err
	}
	old, err := readOptional(opts.oldDefaults)
	if err != nil {
		return err
	}
	newDefaults, err := os.ReadFile(opts.newDefaults)
	if err != nil {
		return fmt.Errorf("read new defaults: %w", err)
	}

	res := configapi.LayoutMigrator{Logger: logger}.Normalize(opts.typeName, current, old, string(newDefaults))
	for _, a := range res.Actions {
		logger.Debug("field", "name", a.Field, "action", a.Action)
	}
	if res.IsFallback() {
		logger.Warn("normalization fell back to the current document", "error", res.Err)
	}

	if !opts.write {
		fmt.Fprintln(cmd.OutOrStdout(), res.NormalizedXML)
		return nil
	}
	if res.RequiresBackup && current != "" {
		backup := opts.current + ".bak"
		if err := os.WriteFile(backup, []byte(current), 0o644); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		logger.Info("original saved", "path", backup)
	}
	if err := os.WriteFile(opts.current, []byte(res.NormalizedXML), 0o644); err != nil {
		return fmt.Errorf("write normalized document: %w", err)
	}
	if opts.defaultsOut != "" {
		if err := os.WriteFile(opts.defaultsOut, []byte(res.NormalizedDefaultsXML), 0o644); err != nil {
			return fmt.Errorf("write defaults: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "backup required: %t\n", res.RequiresBackup)
	return nil
}

// readOptional returns "" for an unset path or a file that does not exist yet.
func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
