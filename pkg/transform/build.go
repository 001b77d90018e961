package transform

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
)

// Build assembles the pipeline described by cfg. Toggles without a pass
// behind them are logged and ignored.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, toggle := range cfg.Transform.EnabledUnimplemented() {
		logger.Warn("transform not implemented, ignoring", "toggle", toggle)
	}

	renamePass, err := rename.New(RenameOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	pipeline := NewPipeline(append([]Option{WithLogger(logger)}, opts...)...)
	pipeline.Add(renamePass)

	return pipeline, nil
}

// RenameOptions maps configuration onto rename pass options.
func RenameOptions(cfg *config.Config) rename.Options {
	return rename.Options{
		Prefix:           cfg.Rename.Prefix,
		Length:           cfg.Rename.Length,
		Seed:             cfg.Rename.Seed,
		PreserveBuiltins: cfg.Rename.PreserveBuiltins(),
		PreserveImports:  cfg.Rename.PreserveImports(),
		RenameFunctions:  cfg.Rename.Functions,
		RenameClasses:    cfg.Rename.Classes,
	}
}
