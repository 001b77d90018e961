package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricIdentifiersTotal = "pyfuscate.rename.identifiers.total"
	metricGeneratedTotal   = "pyfuscate.rename.names.generated.total"
	metricPassDuration     = "pyfuscate.pipeline.pass.duration.seconds"

	attrKind   = "kind"
	attrPass   = "pass"
	attrStatus = "status"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s: single files parse in
// milliseconds, generated modules can take seconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60} //nolint:gochecknoglobals // Histogram layout.

// RenameMetrics holds OTel instruments for the transform pipeline.
type RenameMetrics struct {
	identifiersTotal metric.Int64Counter
	generatedTotal   metric.Int64Counter
	passDuration     metric.Float64Histogram
}

// RenameStats summarizes one rename pass, decoupled from pass types.
type RenameStats struct {
	// ByKind counts renamed identifier occurrences per identifier kind
	// (variable, parameter, function, class, member).
	ByKind map[string]int64

	// Generated is the number of fresh names drawn from the generator.
	Generated int64
}

// NewRenameMetrics creates pipeline metric instruments from the given meter.
func NewRenameMetrics(mt metric.Meter) (*RenameMetrics, error) {
	identifiers, err := mt.Int64Counter(metricIdentifiersTotal,
		metric.WithDescription("Identifier occurrences rewritten, by kind"),
		metric.WithUnit("{identifier}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIdentifiersTotal, err)
	}

	generated, err := mt.Int64Counter(metricGeneratedTotal,
		metric.WithDescription("Fresh identifiers generated"),
		metric.WithUnit("{name}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricGeneratedTotal, err)
	}

	passDur, err := mt.Float64Histogram(metricPassDuration,
		metric.WithDescription("Per-pass duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPassDuration, err)
	}

	return &RenameMetrics{
		identifiersTotal: identifiers,
		generatedTotal:   generated,
		passDuration:     passDur,
	}, nil
}

// RecordPass records one pass execution. Safe to call on a nil receiver.
func (rm *RenameMetrics) RecordPass(ctx context.Context, pass string, duration time.Duration, failed bool) {
	if rm == nil {
		return
	}

	status := statusOK
	if failed {
		status = statusError
	}

	rm.passDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrPass, pass),
		attribute.String(attrStatus, status),
	))
}

// RecordRename records the outcome of a rename pass. Safe to call on a nil
// receiver.
func (rm *RenameMetrics) RecordRename(ctx context.Context, stats RenameStats) {
	if rm == nil {
		return
	}

	for kind, count := range stats.ByKind {
		rm.identifiersTotal.Add(ctx, count, metric.WithAttributes(attribute.String(attrKind, kind)))
	}

	rm.generatedTotal.Add(ctx, stats.Generated)
}
