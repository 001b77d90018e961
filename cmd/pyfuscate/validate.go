package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
)

// errInvalidTree makes the process exit with exitCodeValidationFailure.
var errInvalidTree = errors.New("tree is invalid")

func (a *app) validateCmd() *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate [tree.json|-]",
		Short: "Validate a wire JSON tree against the schema",
		Long: `Validate a {type, fields} JSON tree against the embedded schema and the
field arity table.

Examples:
  pyfuscate validate tree.json
  pyfuscate validate - < tree.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			in, label, err := a.openInput(argOrEmpty(args))
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read %s: %w", label, err)
			}

			return a.runValidate(data, label, colorize && !nocolor)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func (a *app) runValidate(data []byte, label string, colorize bool) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	if colorize {
		ok.EnableColor()
		bad.EnableColor()
	} else {
		ok.DisableColor()
		bad.DisableColor()
	}

	err := astjson.Validate(data)
	if err != nil {
		bad.Fprintf(a.stdout, "Tree validation failed (%s)\n", label)

		var verr *astjson.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				bad.Fprintf(a.stdout, "  - %s: %s\n", v.Field, v.Description)
			}
		} else {
			bad.Fprintf(a.stdout, "  - %v\n", err)
		}

		return fmt.Errorf("%w: %s", errInvalidTree, label)
	}

	// The schema cannot express arity, so decode as well.
	_, err = astjson.Decode(bytes.NewReader(data))
	if err != nil {
		bad.Fprintf(a.stdout, "Tree validation failed (%s)\n  - %v\n", label, err)

		return fmt.Errorf("%w: %s", errInvalidTree, label)
	}

	if !a.quiet {
		ok.Fprintf(a.stdout, "Tree is valid (%s)\n", label)
	}

	return nil
}
