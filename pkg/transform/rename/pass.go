// Package rename implements the identifier renaming pass: one forward walk
// over the tree that binds names in a scope stack and replaces every eligible
// identifier with a generated one.
package rename

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/eligibility"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/namegen"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/observability"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/scope"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// PassName is the name the pass reports to the pipeline.
const PassName = "rename"

// Options configures the pass.
type Options struct {
	Prefix string
	Length int
	Seed   int64

	PreserveBuiltins bool
	PreserveImports  bool
	RenameFunctions  bool
	RenameClasses    bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Prefix:           namegen.DefaultPrefix,
		Length:           namegen.DefaultLength,
		PreserveBuiltins: true,
		PreserveImports:  true,
	}
}

// Pass renames identifiers. Each Apply starts from a fresh generator seeded
// with Options.Seed, so equal trees produce equal output.
type Pass struct {
	logger  *slog.Logger
	mapping Mapping
	stats   Stats
	opts    Options
}

// New returns a rename pass. A nil logger discards output.
func New(opts Options, logger *slog.Logger) (*Pass, error) {
	if opts.Length <= 0 {
		return nil, fmt.Errorf("rename: %w: %d", namegen.ErrInvalidLength, opts.Length)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pass{
		opts:   opts,
		logger: logger,
		stats:  newStats(),
	}, nil
}

// Name implements transform.Pass.
func (p *Pass) Name() string {
	return PassName
}

// Apply renames identifiers of t in place.
func (p *Pass) Apply(ctx context.Context, t *tree.Tree) error {
	gen, err := namegen.New(p.opts.Seed, p.opts.Prefix, p.opts.Length, namegen.WithReject(eligibility.IsReserved))
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	st := &state{
		ctx:      ctx,
		logger:   p.logger,
		resolver: scope.NewResolver(),
		gen:      gen,
		policy:   eligibility.New(p.opts.PreserveBuiltins, p.opts.PreserveImports),
		opts:     p.opts,
		stats:    newStats(),
		outer:    make(map[tree.NodeID]struct{}),
	}

	st.prescan(t)

	err = tree.Walk(t, t.Root(), st)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	if st.resolver.Depth() != 1 {
		return fmt.Errorf("rename: %w: %d scopes left open", scope.ErrModuleScope, st.resolver.Depth()-1)
	}

	p.mapping = st.mapping
	p.stats = st.stats

	p.logger.DebugContext(ctx, "rename finished",
		"generated", st.stats.Generated,
		"rewritten", st.stats.Total(),
		"imports", st.policy.ImportedCount())

	return nil
}

// Mapping returns the names generated by the last Apply.
func (p *Pass) Mapping() Mapping {
	return p.mapping
}

// Stats returns the counts of the last Apply.
func (p *Pass) Stats() Stats {
	return p.stats
}

// RenameStats implements the pipeline's metrics hook.
func (p *Pass) RenameStats() observability.RenameStats {
	return p.stats.Telemetry()
}
