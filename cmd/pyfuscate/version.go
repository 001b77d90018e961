package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/internal/pybridge"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/version"
)

func (a *app) versionCmd() *cobra.Command {
	var (
		withPython bool
		python     string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.stdout, "pyfuscate %s\n", version.String())

			if !withPython {
				return nil
			}

			bridge, err := pybridge.New(python, "", nil)
			if err != nil {
				return err
			}
			defer bridge.Close()

			pyVersion, err := bridge.Version(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "python %s (%s)\n", pyVersion, bridge.Python())

			return nil
		},
	}

	cmd.Flags().BoolVar(&withPython, "with-python", false, "also report the python interpreter version")
	cmd.Flags().StringVar(&python, "python", config.DefaultPythonCommand, "python interpreter")

	return cmd
}
