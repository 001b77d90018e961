// Package pybridge runs the embedded Python helper scripts that turn source
// text into wire JSON and back. It is the only place the tool starts a
// subprocess.
package pybridge

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

//go:embed scripts/*.py
var scripts embed.FS

// Script names inside the embedded directory.
const (
	parseScript   = "parse.py"
	unparseScript = "unparse.py"
	scriptDir     = "scripts"
)

// File modes for extracted helpers.
const (
	scriptMode = 0o600
)

// Errors.
var (
	// ErrBoundary is wrapped by every failure of a helper run.
	ErrBoundary = errors.New("python helper failed")
	// ErrPythonNotFound is returned when the interpreter is not on PATH.
	ErrPythonNotFound = errors.New("python interpreter not found")
	// ErrClosed is returned when a closed bridge is used.
	ErrClosed = errors.New("bridge is closed")
)

// BoundaryError describes a failed helper run.
type BoundaryError struct {
	Err      error
	Script   string
	Stderr   string
	ExitCode int
}

func (e *BoundaryError) Error() string {
	msg := fmt.Sprintf("%s: %s exited with code %d", ErrBoundary, e.Script, e.ExitCode)

	if stderr := lastLine(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}

	return msg
}

// Unwrap returns ErrBoundary and the underlying process error.
func (e *BoundaryError) Unwrap() []error {
	return []error{ErrBoundary, e.Err}
}

// Bridge owns a directory holding the extracted helper scripts.
type Bridge struct {
	logger *slog.Logger
	python string
	dir    string
	closed bool
}

// New resolves python on PATH and extracts the helper scripts into a fresh
// directory under tempDir ("" means the system temp dir). Close removes it.
func New(python, tempDir string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	resolved, err := exec.LookPath(python)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPythonNotFound, python, err)
	}

	dir, err := os.MkdirTemp(tempDir, "pyfuscate-bridge-")
	if err != nil {
		return nil, fmt.Errorf("create bridge dir: %w", err)
	}

	for _, name := range []string{parseScript, unparseScript} {
		err = extract(name, dir)
		if err != nil {
			_ = os.RemoveAll(dir)

			return nil, err
		}
	}

	logger.Debug("python bridge ready", "python", resolved, "dir", dir)

	return &Bridge{python: resolved, dir: dir, logger: logger}, nil
}

func extract(name, dir string) error {
	data, err := scripts.ReadFile(scriptDir + "/" + name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}

	err = os.WriteFile(filepath.Join(dir, name), data, scriptMode)
	if err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}

	return nil
}

// Python returns the resolved interpreter path.
func (b *Bridge) Python() string {
	return b.python
}

// Dir returns the directory the helper scripts live in.
func (b *Bridge) Dir() string {
	return b.dir
}

// Parse writes the wire JSON of the Python file src to dstJSON.
func (b *Bridge) Parse(ctx context.Context, src, dstJSON string) error {
	return b.run(ctx, parseScript, src, dstJSON)
}

// Unparse writes Python source rebuilt from the wire JSON in srcJSON to dst.
func (b *Bridge) Unparse(ctx context.Context, srcJSON, dst string) error {
	return b.run(ctx, unparseScript, srcJSON, dst)
}

// Version returns the interpreter's version string, e.g. "Python 3.12.1".
func (b *Bridge) Version(ctx context.Context) (string, error) {
	if b.closed {
		return "", ErrClosed
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, b.python, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", b.boundaryError("--version", &stderr, err)
	}

	// Python 2 prints the version on stderr.
	return strings.TrimSpace(stdout.String() + stderr.String()), nil
}

// Close removes the extracted scripts. It is safe to call more than once.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true

	err := os.RemoveAll(b.dir)
	if err != nil {
		return fmt.Errorf("remove bridge dir: %w", err)
	}

	return nil
}

func (b *Bridge) run(ctx context.Context, script string, args ...string) error {
	if b.closed {
		return ErrClosed
	}

	var stdout, stderr bytes.Buffer

	argv := append([]string{filepath.Join(b.dir, script)}, args...)

	cmd := exec.CommandContext(ctx, b.python, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		b.logger.DebugContext(ctx, "python helper failed", "script", script, "duration", elapsed, "error", err)

		return b.boundaryError(script, &stderr, err)
	}

	b.logger.DebugContext(ctx, "python helper finished", "script", script, "duration", elapsed)

	return nil
}

func (b *Bridge) boundaryError(script string, stderr *bytes.Buffer, err error) error {
	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &BoundaryError{
		Script:   script,
		ExitCode: exitCode,
		Stderr:   stderr.String(),
		Err:      err,
	}
}

// lastLine returns the last non-empty line of s. For a Python traceback that
// is the exception message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")

	return strings.TrimSpace(lines[len(lines)-1])
}
