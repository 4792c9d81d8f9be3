// Package catalog persists the per-build notebook catalog as a JSON index file.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

// File is the catalog location relative to the output root.
var File = path.Join("notebooks", "index.json")

// Encode serializes the catalog as an indented JSON array. Nil tag slices are
// written as empty arrays.
func Encode(c models.Catalog) ([]byte, error) {
	out := make(models.Catalog, len(c))
	for i, n := range c {
		if n.Tags == nil {
			n.Tags = []string{}
		}
		out[i] = n
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("catalog: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a catalog file.
func Decode(data []byte) (models.Catalog, error) {
	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if c == nil {
		c = models.Catalog{}
	}
	return c, nil
}

// Write replaces the catalog file under the output root. The write is atomic:
// readers see either the previous catalog or the complete new one.
func Write(out storage.Provider, c models.Catalog) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := out.Write(File, data); err != nil {
		return fmt.Errorf("catalog: write: %w", err)
	}
	return nil
}

// Read loads the catalog file from the output root.
func Read(out storage.Provider) (models.Catalog, error) {
	data, err := out.Read(File)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return Decode(data)
}

// Load reads a catalog file from an arbitrary path.
func Load(filename string) (models.Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, apperr.IO("read", filename, err)
	}
	return Decode(data)
}
