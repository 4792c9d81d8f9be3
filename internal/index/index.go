package index

import "github.com/starford/nbsite/internal/models"

// NotebookIndex defines the interface for catalog indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NotebookIndex interface {
	UpsertNotebook(n models.Notebook, body string) error
	DeleteNotebook(filename string) error
	GetNotebook(filename string) (*models.Notebook, error)
	ListNotebooks(limit, offset int, tag string) ([]models.Notebook, int, error)
	Tags() ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NotebookIndex at compile time.
var _ NotebookIndex = (*DB)(nil)
