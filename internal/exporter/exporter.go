package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

// Failure policies for converter errors.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

// Dir is the output subdirectory holding exported artifacts and the catalog.
const Dir = "notebooks"

// StaticSubdir holds the static-only exports under Dir, apart from the
// interactive exports so no stem can produce both names.
const StaticSubdir = "static"

// Options controls which artifacts are produced.
type Options struct {
	Format        string
	Static        bool
	IncludeSource bool
	IncludeCode   bool
	Timeout       time.Duration
	OnError       string
}

// Artifacts holds the output-root relative paths produced for one notebook.
// A path is empty when the artifact was not produced.
type Artifacts struct {
	HTMLPath       string
	StaticHTMLPath string
	NotebookPath   string
}

// Apply copies the artifact paths into n.
func (a Artifacts) Apply(n *models.Notebook) {
	n.HTMLPath = a.HTMLPath
	n.StaticHTMLPath = a.StaticHTMLPath
	n.NotebookPath = a.NotebookPath
}

// Paths returns the artifact paths for filename when every artifact is enabled.
func Paths(filename string) Artifacts {
	stem := models.Stem(filename)
	return Artifacts{
		HTMLPath:       path.Join(Dir, stem+".html"),
		StaticHTMLPath: path.Join(Dir, StaticSubdir, stem+".html"),
		NotebookPath:   path.Join(Dir, filepath.Base(filename)),
	}
}

// Exporter produces the per-notebook artifacts in the output tree.
type Exporter struct {
	conv   Converter
	out    storage.Provider
	opts   Options
	logger *slog.Logger
}

// New creates an Exporter writing under out.
func New(conv Converter, out storage.Provider, opts Options, logger *slog.Logger) *Exporter {
	if opts.OnError == "" {
		opts.OnError = OnErrorFail
	}
	if opts.Format == "" {
		opts.Format = FormatHTMLWasm
	}
	return &Exporter{conv: conv, out: out, opts: opts, logger: logger}
}

// Export converts src and copies its source when configured. Under the skip
// policy a conversion failure is logged and reported as empty artifacts.
func (e *Exporter) Export(ctx context.Context, src models.SourceFile) (Artifacts, error) {
	want := Paths(src.Name)
	var got Artifacts

	dir := filepath.Join(e.out.Root(), Dir)
	if e.opts.Static {
		dir = filepath.Join(dir, StaticSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return got, apperr.IO("mkdir", dir, err)
	}

	start := time.Now()
	err := e.convert(ctx, Request{
		Source:      src.Path,
		Output:      filepath.Join(e.out.Root(), filepath.FromSlash(want.HTMLPath)),
		Format:      e.opts.Format,
		IncludeCode: e.opts.IncludeCode,
	})
	if err != nil {
		return got, e.handle(src, err)
	}
	got.HTMLPath = want.HTMLPath

	if e.opts.Static {
		err := e.convert(ctx, Request{
			Source:      src.Path,
			Output:      filepath.Join(e.out.Root(), filepath.FromSlash(want.StaticHTMLPath)),
			Format:      FormatHTML,
			IncludeCode: e.opts.IncludeCode,
			StaticOnly:  true,
		})
		if err != nil {
			return Artifacts{}, e.handle(src, err)
		}
		got.StaticHTMLPath = want.StaticHTMLPath
	}

	if e.opts.IncludeSource {
		if err := e.out.Import(src.Path, want.NotebookPath); err != nil {
			return Artifacts{}, err
		}
		got.NotebookPath = want.NotebookPath
	}

	e.logger.Debug("export: done",
		slog.String("notebook", src.Name),
		slog.Duration("elapsed", time.Since(start)))
	return got, nil
}

func (e *Exporter) convert(ctx context.Context, req Request) error {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	return e.conv.Convert(ctx, req)
}

func (e *Exporter) handle(src models.SourceFile, err error) error {
	var convErr *apperr.ConversionError
	if !errors.As(err, &convErr) {
		convErr = &apperr.ConversionError{Source: src.Path, Err: err}
	}
	attrs := []any{
		slog.String("notebook", src.Name),
		slog.String("error", err.Error()),
	}
	if convErr.Output != "" {
		attrs = append(attrs, slog.String("output", convErr.Output))
	}
	if e.opts.OnError == OnErrorSkip && !errors.Is(err, context.Canceled) {
		e.logger.Warn("export: conversion failed, skipping notebook", attrs...)
		e.removeStale(src.Name)
		return nil
	}
	e.logger.Error("export: conversion failed", attrs...)
	return fmt.Errorf("export %s: %w", src.Name, convErr)
}

// removeStale deletes artifacts left by earlier builds of a skipped notebook
// so the output tree matches its empty catalog paths.
func (e *Exporter) removeStale(name string) {
	p := Paths(name)
	for _, rel := range []string{p.HTMLPath, p.StaticHTMLPath, p.NotebookPath} {
		if err := e.out.Delete(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Warn("export: remove stale artifact failed",
				slog.String("path", rel),
				slog.String("error", err.Error()))
		}
	}
}
