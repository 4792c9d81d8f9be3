// Package pipeline runs one full site build: extract, export, catalog, assemble.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/nbsite/internal/catalog"
	"github.com/starford/nbsite/internal/exporter"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/parser"
	"github.com/starford/nbsite/internal/site"
	"github.com/starford/nbsite/internal/storage"
)

// Result summarizes a finished build.
type Result struct {
	Catalog  models.Catalog
	Pages    []string
	Skipped  []string // notebooks whose export failed under the skip policy
	Duration time.Duration
}

// Builder wires the build stages together.
type Builder struct {
	src       storage.Provider
	out       storage.Provider
	exporter  *exporter.Exporter
	assembler *site.Assembler
	logger    *slog.Logger
}

// NewBuilder creates a Builder reading notebooks from src and writing to out.
func NewBuilder(src, out storage.Provider, exp *exporter.Exporter, asm *site.Assembler, logger *slog.Logger) *Builder {
	return &Builder{src: src, out: out, exporter: exp, assembler: asm, logger: logger}
}

// Build runs the pipeline once. Notebooks are processed sequentially in
// directory order; the first unrecovered error aborts the build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	sources, err := b.src.List("")
	if err != nil {
		return nil, fmt.Errorf("pipeline: list notebooks: %w", err)
	}
	b.logger.Info("pipeline: building",
		slog.String("source", b.src.Root()),
		slog.String("output", b.out.Root()),
		slog.Int("notebooks", len(sources)))

	if err := checkOutputs(sources); err != nil {
		return nil, err
	}

	res := &Result{Catalog: make(models.Catalog, 0, len(sources))}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nb, err := parser.Extract(src.Path)
		if err != nil {
			return nil, fmt.Errorf("pipeline: extract %s: %w", src.Name, err)
		}

		arts, err := b.exporter.Export(ctx, src)
		if err != nil {
			return nil, err
		}
		if arts.HTMLPath == "" {
			res.Skipped = append(res.Skipped, src.Name)
		}
		arts.Apply(&nb)

		b.logger.Debug("pipeline: processed",
			slog.String("notebook", src.Name),
			slog.String("title", nb.Title))
		res.Catalog = append(res.Catalog, nb)
	}

	// Pages are rendered before the catalog is replaced so a template failure
	// keeps the previous catalog and pages consistent.
	rendered, err := b.assembler.Render(res.Catalog)
	if err != nil {
		return nil, fmt.Errorf("pipeline: render: %w", err)
	}
	if err := catalog.Write(b.out, res.Catalog); err != nil {
		return nil, err
	}
	report, err := b.assembler.Commit(rendered)
	if err != nil {
		return nil, fmt.Errorf("pipeline: assemble: %w", err)
	}
	res.Pages = report.Pages
	res.Duration = time.Since(start)

	b.logger.Info("pipeline: build complete",
		slog.Int("notebooks", len(res.Catalog)),
		slog.Int("pages", len(res.Pages)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Duration("elapsed", res.Duration))
	return res, nil
}

// checkOutputs fails when two sources would write the same output path. It
// runs before any export so a rejected build leaves the output tree as it was.
func checkOutputs(sources []models.SourceFile) error {
	owner := map[string]string{catalog.File: "the catalog"}
	for _, src := range sources {
		p := exporter.Paths(src.Name)
		for _, out := range []string{models.DetailPage(src.Name), p.HTMLPath, p.StaticHTMLPath, p.NotebookPath} {
			if prev, ok := owner[out]; ok {
				return fmt.Errorf("pipeline: %s and %s both map to %s", prev, src.Name, out)
			}
			owner[out] = src.Name
		}
	}
	return nil
}
