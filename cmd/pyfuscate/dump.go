package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
)

// Dump formats.
const (
	formatTree = "tree"
	formatYAML = "yaml"
	formatJSON = "json"
)

var errUnknownFormat = errors.New("unknown format")

func (a *app) dumpCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dump [tree.json|-]",
		Short: "Print a wire JSON tree",
		Long: `Print a {type, fields} JSON tree as an indented outline, YAML or indented JSON.

Examples:
  pyfuscate dump tree.json
  pyfuscate dump --format yaml tree.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			in, label, err := a.openInput(argOrEmpty(args))
			if err != nil {
				return err
			}
			defer in.Close()

			t, err := astjson.Decode(in)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}

			switch format {
			case formatTree:
				return astjson.DumpTree(a.stdout, t)
			case formatYAML:
				return astjson.DumpYAML(a.stdout, t)
			case formatJSON:
				return astjson.EncodeIndent(a.stdout, t, "  ")
			default:
				return fmt.Errorf("%w: %q (want %s, %s or %s)", errUnknownFormat, format, formatTree, formatYAML, formatJSON)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTree, "output format: tree, yaml or json")

	return cmd
}
