// Package obfuscate wires the whole run together: read the input, parse it
// through the Python bridge, rename on the tree, and write source back.
package obfuscate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pyfuscate/internal/pybridge"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/observability"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/textutil"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
)

// Errors.
var (
	ErrInputTooLarge = errors.New("input exceeds the maximum size")
	ErrNotPython     = errors.New("input does not look like Python source")
)

// Work file names inside the run directory.
const (
	parsedFile      = "parsed.json"
	transformedFile = "transformed.json"
	outputMode      = 0o644
	tracerName      = "pyfuscate"
)

// Bridge converts between source files and wire JSON files.
type Bridge interface {
	Parse(ctx context.Context, src, dstJSON string) error
	Unparse(ctx context.Context, srcJSON, dst string) error
	Close() error
}

// BridgeFactory opens a Bridge.
type BridgeFactory func(python, tempDir string, logger *slog.Logger) (Bridge, error)

// Deps are the collaborators of a run. Zero fields get defaults.
type Deps struct {
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Metrics   *observability.RenameMetrics
	NewBridge BridgeFactory
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}

	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}

	if d.NewBridge == nil {
		d.NewBridge = DefaultBridge
	}

	return d
}

// DefaultBridge opens a pybridge.Bridge.
func DefaultBridge(python, tempDir string, logger *slog.Logger) (Bridge, error) {
	b, err := pybridge.New(python, tempDir, logger)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Result describes a finished run.
type Result struct {
	Input   string
	Output  string
	WorkDir string
	Mapping rename.Mapping
	Stats   rename.Stats
	Seed    int64
	Size    uint64
	Lines   int
	// OutputLines is zero when the output could not be read back.
	OutputLines int
	Duration    time.Duration
	// KeptTemp is true when the intermediate JSON files were left in WorkDir.
	KeptTemp bool
}

// Run obfuscates cfg.Input into cfg.Output.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	deps = deps.withDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, span := deps.Tracer.Start(ctx, "pyfuscate.obfuscate",
		trace.WithAttributes(attribute.String("input", cfg.Input)))
	defer span.End()

	result, err := run(ctx, cfg, deps)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("rename.generated", result.Stats.Generated),
		attribute.Int64("input.bytes", int64(result.Size)), //nolint:gosec // Bounded by the size limit.
	)

	return result, nil
}

func run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	start := time.Now()
	logger := deps.Logger

	source, err := readInput(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Rename.SeedGenerated {
		logger.InfoContext(ctx, "using random seed", "seed", cfg.Rename.Seed)
	}

	bridge, err := deps.NewBridge(cfg.Python.Command, cfg.Python.TempDir, logger)
	if err != nil {
		return nil, fmt.Errorf("start python bridge: %w", err)
	}

	defer func() {
		closeErr := bridge.Close()
		if closeErr != nil {
			logger.WarnContext(ctx, "close python bridge", "error", closeErr)
		}
	}()

	workDir, err := os.MkdirTemp(cfg.Python.TempDir, "pyfuscate-run-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	result := &Result{
		Input:    cfg.Input,
		Output:   cfg.Output,
		WorkDir:  workDir,
		Seed:     cfg.Rename.Seed,
		Size:     uint64(len(source)),
		Lines:    textutil.CountLines(source),
		KeptTemp: cfg.Python.KeepTemp,
	}

	defer cleanup(ctx, logger, result)

	parsed := filepath.Join(workDir, parsedFile)
	transformed := filepath.Join(workDir, transformedFile)

	err = bridge.Parse(ctx, cfg.Input, parsed)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfg.Input, err)
	}

	err = transformFile(ctx, cfg, deps, parsed, transformed, result)
	if err != nil {
		return nil, err
	}

	err = bridge.Unparse(ctx, transformed, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("unparse to %s: %w", cfg.Output, err)
	}

	written, err := os.ReadFile(cfg.Output)
	if err == nil {
		result.OutputLines = textutil.CountLines(written)
	}

	result.Duration = time.Since(start)

	logger.InfoContext(ctx, "obfuscation complete",
		"input", cfg.Input,
		"output", cfg.Output,
		"size", humanize.Bytes(result.Size),
		"renamed", result.Stats.Total(),
		"generated", result.Stats.Generated,
		"duration", result.Duration)

	return result, nil
}

func readInput(cfg *config.Config) ([]byte, error) {
	limit, err := cfg.Python.MaxInputBytes()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	size := uint64(info.Size()) //nolint:gosec // File sizes are non-negative.
	if limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %s is %s, limit %s",
			ErrInputTooLarge, cfg.Input, humanize.Bytes(size), humanize.Bytes(limit))
	}

	source, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if textutil.IsBinary(source) {
		return nil, fmt.Errorf("%w: %s is binary", ErrNotPython, cfg.Input)
	}

	if !pybridge.IsPython(cfg.Input, source) {
		return nil, fmt.Errorf("%w: %s", ErrNotPython, cfg.Input)
	}

	return source, nil
}

func transformFile(ctx context.Context, cfg *config.Config, deps Deps, src, dst string, result *Result) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open parsed tree: %w", err)
	}
	defer in.Close()

	var out bytes.Buffer

	treeResult, err := TransformTree(ctx, cfg, in, &out, deps)
	if err != nil {
		return err
	}

	result.Mapping = treeResult.Mapping
	result.Stats = treeResult.Stats

	err = os.WriteFile(dst, out.Bytes(), outputMode)
	if err != nil {
		return fmt.Errorf("write transformed tree: %w", err)
	}

	return nil
}

func cleanup(ctx context.Context, logger *slog.Logger, result *Result) {
	if result.KeptTemp {
		logger.InfoContext(ctx, "keeping intermediate files", "dir", result.WorkDir)

		return
	}

	err := os.RemoveAll(result.WorkDir)
	if err != nil {
		logger.WarnContext(ctx, "remove work dir", "dir", result.WorkDir, "error", err)
	}
}

// TreeResult is what TransformTree reports.
type TreeResult struct {
	Mapping rename.Mapping
	Stats   rename.Stats
	Nodes   int
}

// TransformTree runs the pass pipeline over wire JSON read from r and writes
// the transformed wire JSON to w. Python is not involved.
func TransformTree(ctx context.Context, cfg *config.Config, r io.Reader, w io.Writer, deps Deps) (*TreeResult, error) {
	deps = deps.withDefaults()

	err := cfg.ValidateSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	t, err := astjson.Decode(r)
	if err != nil {
		return nil, err
	}

	pipeline, err := transform.Build(cfg, deps.Logger,
		transform.WithTracer(deps.Tracer),
		transform.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, err
	}

	err = pipeline.Run(ctx, t)
	if err != nil {
		return nil, err
	}

	err = astjson.Encode(w, t)
	if err != nil {
		return nil, err
	}

	result := &TreeResult{Nodes: t.Len()}

	if pass, ok := pipeline.Pass(rename.PassName).(*rename.Pass); ok {
		result.Mapping = pass.Mapping()
		result.Stats = pass.Stats()
	}

	return result, nil
}
