// Package notebookservice answers catalog queries for the preview API and the
// MCP server.
package notebookservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/index"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

// NotebookDetail is the full representation of a notebook.
type NotebookDetail struct {
	models.Notebook
	DetailPage string `json:"detail_page"`
	Source     string `json:"source"`
}

const detailCacheSize = 128

// Service coordinates the notebook source directory and the catalog index.
type Service struct {
	src    storage.Provider
	db     index.NotebookIndex
	logger *slog.Logger

	// details caches notebook sources; an entry is valid while its checksum
	// matches the index.
	details *lru.Cache[string, NotebookDetail]
}

// NewService creates a new notebook service.
func NewService(src storage.Provider, db index.NotebookIndex, logger *slog.Logger) *Service {
	details, _ := lru.New[string, NotebookDetail](detailCacheSize)
	return &Service{src: src, db: db, logger: logger, details: details}
}

// GetNotebook returns catalog metadata plus the notebook source.
func (s *Service) GetNotebook(_ context.Context, filename string) (*NotebookDetail, error) {
	if err := validFilename(filename); err != nil {
		return nil, err
	}
	n, err := s.db.GetNotebook(filename)
	if err != nil {
		return nil, err
	}
	if d, ok := s.details.Get(filename); ok && d.Checksum == n.Checksum {
		d.Notebook = *n
		return &d, nil
	}

	data, err := s.src.Read(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	d := NotebookDetail{
		Notebook:   *n,
		DetailPage: n.DetailPage(),
		Source:     string(data),
	}
	s.details.Add(filename, d)
	return &d, nil
}

// ListNotebooks returns paginated catalog entries with an optional tag filter.
func (s *Service) ListNotebooks(_ context.Context, limit, offset int, tag string) ([]models.Notebook, int, error) {
	return s.db.ListNotebooks(limit, offset, tag)
}

// Tags returns the sorted tag set of the current catalog.
func (s *Service) Tags(_ context.Context) ([]string, error) {
	return s.db.Tags()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if query == "" {
		return nil, apperr.ErrInvalidInput
	}
	return s.db.Search(query, limit)
}

// Refresh replaces the index contents with a freshly built catalog.
func (s *Service) Refresh(_ context.Context, c models.Catalog) error {
	s.details.Purge()
	return index.Sync(s.db, c, s.src, s.logger)
}

// validFilename accepts only bare notebook file names from the source directory.
func validFilename(name string) error {
	if name == "" || name != filepath.Base(name) || !storage.IsNotebook(name) {
		return apperr.ErrNotFound
	}
	return nil
}
