// Package site renders the catalog into a deployable static site.
package site

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

// StaticDir is the output subdirectory receiving the static assets.
const StaticDir = "static"

// Report summarizes one assembly.
type Report struct {
	Pages []string
	Tags  []string
}

// Assembler renders the index and detail pages and stages static assets.
type Assembler struct {
	out       storage.Provider
	tmpl      *Templates
	staticDir string
	logger    *slog.Logger
}

// NewAssembler creates an Assembler. staticDir may be empty.
func NewAssembler(out storage.Provider, tmpl *Templates, staticDir string, logger *slog.Logger) *Assembler {
	return &Assembler{out: out, tmpl: tmpl, staticDir: staticDir, logger: logger}
}

type page struct {
	name string
	body []byte
}

// Rendered holds every page of one assembly in memory, ready to be committed.
type Rendered struct {
	pages []page
	tags  []string
}

// Render executes the index and per-notebook templates without touching the
// output tree, so a template failure leaves the previous site untouched.
func (a *Assembler) Render(c models.Catalog) (*Rendered, error) {
	tags := c.Tags()
	notebooks := []models.Notebook(c)
	if notebooks == nil {
		notebooks = []models.Notebook{}
	}

	r := &Rendered{pages: make([]page, 0, len(c)+1), tags: tags}
	body, err := a.tmpl.Render(IndexTemplate, map[string]any{
		"notebooks": notebooks,
		"tags":      tags,
	})
	if err != nil {
		return nil, err
	}
	r.pages = append(r.pages, page{name: "index.html", body: body})

	seen := make(map[string]string, len(c))
	for _, n := range c {
		name := n.DetailPage()
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("site: %s and %s both map to %s", prev, n.Filename, name)
		}
		seen[name] = n.Filename

		body, err := a.tmpl.Render(NotebookTemplate, map[string]any{
			"notebook":  n,
			"notebooks": notebooks,
		})
		if err != nil {
			return nil, err
		}
		r.pages = append(r.pages, page{name: name, body: body})
	}
	return r, nil
}

// Commit stages the static tree and writes the rendered pages, each atomically.
func (a *Assembler) Commit(r *Rendered) (*Report, error) {
	if err := a.stageStatic(); err != nil {
		return nil, err
	}

	report := &Report{Tags: r.tags}
	for _, p := range r.pages {
		if err := a.out.Write(p.name, p.body); err != nil {
			return nil, err
		}
		report.Pages = append(report.Pages, p.name)
	}
	a.logger.Info("site: assembled",
		slog.Int("pages", len(report.Pages)),
		slog.Int("tags", len(r.tags)))
	return report, nil
}

func (a *Assembler) stageStatic() error {
	if a.staticDir == "" {
		return nil
	}
	info, err := os.Stat(a.staticDir)
	if os.IsNotExist(err) {
		a.logger.Debug("site: no static directory", slog.String("path", a.staticDir))
		return nil
	}
	if err != nil {
		return apperr.IO("stat", a.staticDir, err)
	}
	if !info.IsDir() {
		return apperr.IO("stat", a.staticDir, fmt.Errorf("not a directory"))
	}
	return a.out.ReplaceTree(a.staticDir, StaticDir)
}
