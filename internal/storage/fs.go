package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
)

// NotebookExts lists the file extensions treated as notebook sources.
var NotebookExts = []string{".py", ".md"}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.IO("stat", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// EnsureFS creates root if needed and returns a provider for it.
func EnsureFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.IO("mkdir", root, err)
	}
	return NewFS(root)
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// List returns the notebook files directly under dir. Subdirectories are not
// descended into.
func (f *FS) List(dir string) ([]models.SourceFile, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, apperr.IO("list", base, err)
	}
	var out []models.SourceFile
	for _, e := range entries {
		if e.IsDir() || !IsNotebook(e.Name()) {
			continue
		}
		out = append(out, models.SourceFile{
			Name: e.Name(),
			Path: filepath.Join(base, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// IsNotebook reports whether name has a notebook source extension.
func IsNotebook(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range NotebookExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperr.IO("read", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	return writeAtomic(abs, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

// Import copies the absolute file src to path with the same atomic guarantees as Write.
func (f *FS) Import(src, path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return apperr.IO("open", src, err)
	}
	defer in.Close()
	return writeAtomic(abs, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// ReplaceTree copies the directory src into a temporary sibling of path and
// swaps it in. The previous tree is renamed aside and removed only after the
// new tree is in place, so readers never see a mix of old and new files.
func (f *FS) ReplaceTree(src, path string) error {
	dst, err := f.safePath(path)
	if err != nil {
		return err
	}
	if dst == f.root {
		return fmt.Errorf("storage: refusing to replace root")
	}
	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return apperr.IO("mkdir", parent, err)
	}

	staging, err := os.MkdirTemp(parent, ".nbsite-stage-*")
	if err != nil {
		return apperr.IO("mkdir", parent, err)
	}
	success := false
	defer func() {
		if !success {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := copyTree(src, staging); err != nil {
		return err
	}
	// MkdirTemp creates 0700 directories.
	if err := os.Chmod(staging, 0o755); err != nil {
		return apperr.IO("chmod", staging, err)
	}

	old := ""
	if _, err := os.Lstat(dst); err == nil {
		old = staging + ".old"
		if err := os.Rename(dst, old); err != nil {
			return apperr.IO("rename", dst, err)
		}
	}
	if err := os.Rename(staging, dst); err != nil {
		if old != "" {
			_ = os.Rename(old, dst)
		}
		return apperr.IO("rename", staging, err)
	}
	success = true
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			return apperr.IO("remove", old, err)
		}
	}
	return nil
}

// Delete removes a file.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return apperr.IO("delete", path, err)
	}
	return nil
}

func writeAtomic(abs string, fill func(io.Writer) error) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".nbsite-tmp-*")
	if err != nil {
		return apperr.IO("create temp", dir, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return apperr.IO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return apperr.IO("fsync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO("close", tmpName, err)
	}
	// CreateTemp uses 0600.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return apperr.IO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return apperr.IO("rename", abs, err)
	}
	success = true
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return apperr.IO("walk", p, walkErr)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return apperr.IO("mkdir", target, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return apperr.IO("open", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return apperr.IO("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return apperr.IO("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return apperr.IO("close", dst, err)
	}
	return nil
}
