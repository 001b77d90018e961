// Package transform runs an ordered list of tree passes with per-pass
// tracing, metrics and logging.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/observability"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// tracerName is the default OTel tracer name for the transform package.
const tracerName = "pyfuscate"

// Pass is one transformation over a tree.
type Pass interface {
	Name() string
	Apply(ctx context.Context, t *tree.Tree) error
}

// renameStatsReporter is implemented by passes that feed rename metrics.
type renameStatsReporter interface {
	RenameStats() observability.RenameStats
}

// Pipeline applies passes in insertion order. Not safe for concurrent use.
type Pipeline struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.RenameMetrics
	passes  []Pass
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the tracer. Defaults to the global provider's tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithMetrics enables metric recording.
func WithMetrics(metrics *observability.RenameMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// NewPipeline returns an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}

	for _, opt := range opts {
		opt(p)
	}

	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}

	return p
}

// Add appends pass.
func (p *Pipeline) Add(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in run order.
func (p *Pipeline) Passes() []Pass {
	return append([]Pass(nil), p.passes...)
}

// Pass returns the first pass named name, or nil.
func (p *Pipeline) Pass(name string) Pass {
	for _, pass := range p.passes {
		if pass.Name() == name {
			return pass
		}
	}

	return nil
}

// Run applies every pass to t in order. The first failing pass stops the run
// and its error is returned wrapped with the pass name.
func (p *Pipeline) Run(ctx context.Context, t *tree.Tree) error {
	for _, pass := range p.passes {
		err := p.runPass(ctx, pass, t)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) runPass(ctx context.Context, pass Pass, t *tree.Tree) error {
	name := pass.Name()

	ctx, span := p.tracer.Start(ctx, "pyfuscate.pass."+name,
		trace.WithAttributes(
			attribute.String("pass", name),
			attribute.Int("tree.nodes", t.Len()),
		))
	defer span.End()

	start := time.Now()
	err := pass.Apply(ctx, t)
	elapsed := time.Since(start)

	p.metrics.RecordPass(ctx, name, elapsed, err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return fmt.Errorf("pass %s: %w", name, err)
	}

	if reporter, ok := pass.(renameStatsReporter); ok {
		p.metrics.RecordRename(ctx, reporter.RenameStats())
	}

	p.logger.DebugContext(ctx, "pass complete", "pass", name, "duration", elapsed)

	return nil
}
