package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/obfuscate"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/report"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
)

// mappingOptions are the report flags shared by obfuscate and transform.
type mappingOptions struct {
	outPath string
	show    bool
}

func (mo *mappingOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&mo.outPath, "mapping-out", "", "write the rename mapping as YAML to this file")
	cmd.Flags().BoolVar(&mo.show, "show-mapping", false, "print the rename mapping table")
}

func (a *app) obfuscateCmd() *cobra.Command {
	var mapping mappingOptions

	cmd := &cobra.Command{
		Use:   "obfuscate [input.py]",
		Short: "Rename identifiers in a Python file",
		Long: `Parse a Python file, rename its identifiers and write the result.

Examples:
  pyfuscate obfuscate app.py -o app_obf.py
  pyfuscate obfuscate --input app.py --output out.py --seed 42 --rename-functions
  pyfuscate obfuscate app.py -o out.py --mapping-out mapping.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runObfuscate(cmd, args, mapping)
		},
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "input Python file")
	flags.StringP("output", "o", "", "output Python file")
	flags.String("python", config.DefaultPythonCommand, "python interpreter")
	flags.String("temp-dir", config.DefaultTempDir, "directory for intermediate files")
	flags.Bool("keep-temp", config.DefaultKeepTemp, "keep intermediate JSON files")
	flags.String("max-input-size", config.DefaultMaxInputSize, "largest accepted input, e.g. 4MB (0 disables)")
	addRenameFlags(flags)
	mapping.register(cmd)

	return cmd
}

func (a *app) runObfuscate(cmd *cobra.Command, args []string, mapping mappingOptions) error {
	sess, err := a.start(cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	if input := argOrEmpty(args); input != "" {
		sess.cfg.Input = input
	}

	result, err := obfuscate.Run(cmd.Context(), sess.cfg, sess.deps())
	if err != nil {
		return err
	}

	err = a.writeMapping(mapping, result.Mapping, result.Seed)
	if err != nil {
		return err
	}

	if a.quiet {
		return nil
	}

	return report.WriteSummary(a.stdout, result)
}

func (a *app) writeMapping(opts mappingOptions, mapping rename.Mapping, seed int64) error {
	if opts.show {
		err := report.WriteMappingTable(a.stdout, mapping)
		if err != nil {
			return err
		}
	}

	if opts.outPath == "" {
		return nil
	}

	var buf bytes.Buffer

	err := report.WriteMappingYAML(&buf, mapping, seed)
	if err != nil {
		return err
	}

	err = a.writeOutput(opts.outPath, buf.Bytes())
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}

	return nil
}
