package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/report"
)

func (a *app) diffCmd() *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "diff <before.py> <after.py>",
		Short: "Show a line diff of two source files",
		Long: `Show which lines an obfuscation run changed.

Examples:
  pyfuscate diff app.py app_obf.py
  pyfuscate diff --color app.py app_obf.py | less -R`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			before, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			after, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			stats, err := report.WriteDiff(a.stdout, string(before), string(after), colorize && !nocolor)
			if err != nil {
				return err
			}

			if !a.quiet {
				fmt.Fprintf(a.stderr, "%d added, %d removed, %d unchanged\n", stats.Added, stats.Removed, stats.Same)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}
