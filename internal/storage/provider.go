// Package storage defines the file-system abstraction used by the build.
package storage

import "github.com/starford/nbsite/internal/models"

// Provider is the interface for file operations rooted at one directory.
// Every path argument is relative to that root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the notebook sources directly under dir, sorted by name.
	List(dir string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Import atomically copies an absolute source file to path.
	Import(src, path string) error
	// ReplaceTree stages a copy of the absolute directory src and swaps it in at path.
	ReplaceTree(src, path string) error
	// Delete removes the file at path.
	Delete(path string) error
}
