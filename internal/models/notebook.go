// Package models defines the domain types for nbsite.
package models

import (
	"path/filepath"
	"sort"
	"strings"
)

// Notebook describes one source notebook file and the artifacts exported for it.
type Notebook struct {
	Filename       string   `json:"filename"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	Date           string   `json:"date"`
	LastModified   float64  `json:"last_modified"`
	Checksum       string   `json:"checksum"`
	HTMLPath       string   `json:"html_path"`
	StaticHTMLPath string   `json:"static_html_path"`
	NotebookPath   string   `json:"notebook_path"`
}

// Stem returns the filename without its extension.
func (n Notebook) Stem() string {
	return Stem(n.Filename)
}

// DetailPage returns the name of the rendered detail page for this notebook.
func (n Notebook) DetailPage() string {
	return DetailPage(n.Filename)
}

// HasTag reports whether tag is one of the notebook's tags.
func (n Notebook) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Catalog is the ordered collection of notebooks produced by one build.
// Order is the source directory enumeration order.
type Catalog []Notebook

// Tags returns every distinct tag in the catalog, sorted.
func (c Catalog) Tags() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, n := range c {
		for _, t := range n.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Find returns the notebook with the given filename.
func (c Catalog) Find(filename string) (Notebook, bool) {
	for _, n := range c {
		if n.Filename == filename {
			return n, true
		}
	}
	return Notebook{}, false
}

// Stem returns filename without directory and extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DetailPage maps a notebook filename to its detail page name (view_<stem>.html).
func DetailPage(filename string) string {
	return "view_" + Stem(filename) + ".html"
}

// SourceFile is a notebook file found in the source directory.
type SourceFile struct {
	Name string
	Path string
}
