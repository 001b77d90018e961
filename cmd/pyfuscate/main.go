// Package main provides the pyfuscate CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/version"
)

// Process exit codes.
const (
	exitOK                    = 0
	exitFailure               = 1
	exitCodeValidationFailure = 2
)

func main() {
	version.InitBinaryVersion()

	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdin, stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	if errors.Is(err, errInvalidTree) {
		return exitCodeValidationFailure
	}

	return exitFailure
}
