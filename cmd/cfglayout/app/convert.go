package app

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Marco-Zechner/SpaceEngineers-ConfigAPI-sub001/configapi"
)

type convertOptions struct {
	typeName          string
	in                string
	out               string
	defaults          string
	format            string
	descriptions      string
	describe          bool
	descriptionFormat string
	annotate          bool
}

func (o *convertOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.typeName, "type", "", "Config type name used as root element")
	cmd.Flags().StringVar(&o.in, "in", "", "Input file")
	cmd.Flags().StringVar(&o.out, "out", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&o.defaults, "defaults", "", "Defaults document of the type")
	cmd.Flags().StringVar(&o.format, "format", configapi.FormatTOML, "External format")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("in")
}

func newExportCmd() *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render an internal XML document in an editable format",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.descriptions, "descriptions", "", "YAML file of field descriptions")
	cmd.Flags().BoolVar(&opts.describe, "describe", true, "Write descriptions as comments")
	cmd.Flags().StringVar(&opts.descriptionFormat, "description-format", string(configapi.DescriptionPlain),
		"Markup of the descriptions: plain, markdown or org")
	cmd.Flags().BoolVar(&opts.annotate, "annotate-defaults", false, "Note the default next to changed values")
	return cmd
}

func newImportCmd() *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Turn an edited file back into the internal XML document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runExport(cmd *cobra.Command, opts convertOptions) error {
	conv, err := opts.converter()
	if err != nil {
		return err
	}
	internal, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	descriptions, err := loadDescriptions(opts.descriptions)
	if err != nil {
		return err
	}
	return opts.emit(cmd, conv.ToExternal(opts.typeName, descriptions, string(internal), opts.describe))
}

func runImport(cmd *cobra.Command, opts convertOptions) error {
	conv, err := opts.converter()
	if err != nil {
		return err
	}
	external, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return opts.emit(cmd, conv.ToInternal(opts.typeName, string(external)))
}

func (o convertOptions) converter() (configapi.FormatConverter, error) {
	var oracle configapi.Oracle
	if o.defaults != "" {
		oracle = fileOracle(o.defaults)
	}
	reg := configapi.NewConverterRegistry()
	if err := reg.Register(configapi.IdentityConverter{}); err != nil {
		return nil, err
	}
	flat := &configapi.FlatConverter{
		Oracle:            oracle,
		Logger:            logger,
		DescriptionFormat: configapi.DescriptionFormat(o.descriptionFormat),
		AnnotateDefaults:  o.annotate,
	}
	if err := reg.Register(flat); err != nil {
		return nil, err
	}
	conv, err := reg.Get(o.format)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, reg.List())
	}
	return conv, nil
}

func (o convertOptions) emit(cmd *cobra.Command, text string) error {
	if o.out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(o.out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("written", "path", o.out)
	return nil
}

// fileOracle serves the defaults document at path for any type name.
func fileOracle(path string) configapi.Oracle {
	return configapi.OracleFuncs{
		Default: func(string) (string, error) {
			b, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}

// loadDescriptions reads a YAML mapping of field descriptions. Nested mappings
// become dotted paths, so "Size: {Width: ...}" describes "Size.Width".
func loadDescriptions(path string) (configapi.Descriptions, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptions: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse descriptions: %w", err)
	}
	out := configapi.Descriptions{}
	flattenDescriptions("", raw, out)
	return out, nil
}

func flattenDescriptions(prefix string, m map[string]any, out configapi.Descriptions) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			flattenDescriptions(path, v, out)
		case nil:
		default:
			out[path] = fmt.Sprint(v)
		}
	}
}
