package index

import (
	"log/slog"

	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

// Sync brings the index up to date with a freshly built catalog:
//   - new or changed entries are upserted with their source text
//   - entries missing from the catalog are deleted
//
// An entry is unchanged when its checksum and artifact paths match, so a
// notebook whose export was skipped and later succeeds is still refreshed.
func Sync(db NotebookIndex, c models.Catalog, src storage.Provider, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c))
	for _, n := range c {
		seen[n.Filename] = struct{}{}

		if cs, ok := checksums[n.Filename]; ok && cs == n.Checksum {
			prev, err := db.GetNotebook(n.Filename)
			if err == nil && sameArtifacts(*prev, n) {
				continue
			}
		}

		body, err := src.Read(n.Filename)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("notebook", n.Filename), slog.String("error", err.Error()))
			continue
		}
		if err := db.UpsertNotebook(n, string(body)); err != nil {
			logger.Warn("sync: index failed", slog.String("notebook", n.Filename), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("notebook", n.Filename))
	}

	// Remove stale entries.
	for f := range checksums {
		if _, ok := seen[f]; ok {
			continue
		}
		if err := db.DeleteNotebook(f); err != nil {
			logger.Warn("sync: delete failed", slog.String("notebook", f), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("notebook", f))
		}
	}
	return nil
}

func sameArtifacts(a, b models.Notebook) bool {
	return a.HTMLPath == b.HTMLPath &&
		a.StaticHTMLPath == b.StaticHTMLPath &&
		a.NotebookPath == b.NotebookPath &&
		a.LastModified == b.LastModified
}
