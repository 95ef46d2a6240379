// Package engine drives one generation run: validate the graph, hand it to
// the selected backend and install the generated files.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ravi-parthasarathy/evegen/pkg/backend"
	"github.com/ravi-parthasarathy/evegen/pkg/config"
	"github.com/ravi-parthasarathy/evegen/pkg/graph"
)

// Engine generates code for a single graph with a single backend.
type Engine struct {
	graph   *graph.Graph
	backend backend.Backend
	cfg     *config.Config
}

// NewEngine creates an Engine after validating the graph.
func NewEngine(g *graph.Graph, b backend.Backend, cfg *config.Config) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("graph must not be nil")
	}
	if b == nil {
		return nil, fmt.Errorf("backend must not be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if err := graph.ValidateErr(g); err != nil {
		return nil, err
	}
	return &Engine{graph: g, backend: b, cfg: cfg}, nil
}

// Options returns the backend options derived from the config.
func (e *Engine) Options() backend.Options {
	return backend.Options{
		Package: e.cfg.Package,
		Threads: e.cfg.Threads,
		Flatten: e.cfg.Flatten,
	}
}

// Generate renders and formats every file without touching the disk.
func (e *Engine) Generate(ctx context.Context) ([]backend.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generation cancelled: %w", err)
	}
	slog.Info("generating", "graph", e.graph.Name, "target", e.backend.Name(), "package", e.cfg.Package)
	files, err := e.backend.Generate(e.graph, e.Options())
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", e.graph.Name, err)
	}
	if err := backend.Format(files); err != nil {
		return nil, err
	}
	return files, nil
}

// Execute generates the files and installs them under the configured
// output directory. Files are formatted once, by Generate.
func (e *Engine) Execute(ctx context.Context) ([]backend.File, error) {
	files, err := e.Generate(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("generation cancelled before write: %w", ctx.Err())
	default:
	}
	if err := backend.Install(e.cfg.Output, files); err != nil {
		return nil, fmt.Errorf("write %s: %w", e.cfg.Output, err)
	}
	slog.Info("generation complete", "out", e.cfg.Output, "files", len(files))
	return files, nil
}
