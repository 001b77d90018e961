package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/obfuscate"
)

func (a *app) transformCmd() *cobra.Command {
	var (
		mapping mappingOptions
		output  string
		indent  bool
	)

	cmd := &cobra.Command{
		Use:   "transform [tree.json|-]",
		Short: "Rename identifiers in a wire JSON tree",
		Long: `Run the rename pipeline over a {type, fields} JSON tree without calling Python.

Examples:
  pyfuscate transform tree.json -o renamed.json
  pyfuscate transform - --seed 1 < tree.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.start(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			in, _, err := a.openInput(argOrEmpty(args))
			if err != nil {
				return err
			}
			defer in.Close()

			var out bytes.Buffer

			result, err := obfuscate.TransformTree(cmd.Context(), sess.cfg, in, &out, sess.deps())
			if err != nil {
				return err
			}

			data := out.Bytes()

			if indent {
				var pretty bytes.Buffer

				err = json.Indent(&pretty, data, "", "  ")
				if err != nil {
					return fmt.Errorf("indent: %w", err)
				}

				data = pretty.Bytes()
			}

			err = a.writeOutput(output, append(data, '\n'))
			if err != nil {
				return err
			}

			return a.writeMapping(mapping, result.Mapping, sess.cfg.Rename.Seed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", stdioName, "output file (- for stdout)")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the output JSON")
	addRenameFlags(cmd.Flags())
	mapping.register(cmd)

	return cmd
}
