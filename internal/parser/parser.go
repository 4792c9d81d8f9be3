// Package parser extracts notebook metadata from marker comments and front matter.
package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/checksum"
	"github.com/starford/nbsite/internal/models"
)

var (
	titleRe       = markerRe("Title")
	descriptionRe = markerRe("Description")
	tagsRe        = markerRe("Tags")
	dateRe        = markerRe("Date")
)

// markerRe matches a "# <word>: value" comment anywhere in the file.
// The marker word is matched case-sensitively.
func markerRe(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)#[ \t]*` + word + `:[ \t]*(.*)$`)
}

// Result holds the metadata found in one notebook source.
type Result struct {
	Title       string
	Description string
	Tags        []string
	Date        string
}

// header is the typed front matter block of a Markdown notebook.
type header struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Tags        any    `yaml:"tags"`
	Date        string `yaml:"date"`
}

// Parse extracts metadata from raw notebook bytes. name is the source file
// name and is only used for the title fallback. Missing markers are never an
// error: each field falls back independently.
func Parse(name string, data []byte) *Result {
	res := &Result{Tags: []string{}}

	if strings.EqualFold(filepath.Ext(name), ".md") {
		applyFrontmatter(res, data)
	}

	if res.Title == "" {
		res.Title = marker(titleRe, data)
	}
	if res.Description == "" {
		res.Description = marker(descriptionRe, data)
	}
	if len(res.Tags) == 0 {
		if m := tagsRe.FindSubmatch(data); m != nil {
			res.Tags = SplitTags(string(m[1]))
		}
	}
	if res.Date == "" {
		res.Date = marker(dateRe, data)
	}
	if res.Title == "" {
		res.Title = TitleFromFilename(name)
	}
	return res
}

// Extract reads the notebook at path and returns its record without output paths.
func Extract(path string) (models.Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Notebook{}, apperr.IO("read", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.Notebook{}, apperr.IO("stat", path, err)
	}

	name := filepath.Base(path)
	res := Parse(name, data)
	return models.Notebook{
		Filename:     name,
		Title:        res.Title,
		Description:  res.Description,
		Tags:         res.Tags,
		Date:         res.Date,
		LastModified: float64(info.ModTime().UnixNano()) / 1e9,
		Checksum:     checksum.Sum(data),
	}, nil
}

// SplitTags splits a comma-separated marker value into trimmed tags.
// Case and duplicates are preserved.
func SplitTags(raw string) []string {
	out := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TitleFromFilename derives a title from a file name: extension dropped,
// underscores become spaces, every word title-cased.
func TitleFromFilename(name string) string {
	stem := models.Stem(name)
	return cases.Title(language.Und).String(strings.ReplaceAll(stem, "_", " "))
}

func marker(re *regexp.Regexp, data []byte) string {
	m := re.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

// applyFrontmatter fills res from a leading YAML block. Invalid or absent
// front matter leaves res untouched so the marker comments still apply.
func applyFrontmatter(res *Result, data []byte) {
	var h header
	if _, err := frontmatter.Parse(bytes.NewReader(data), &h); err != nil {
		return
	}

	res.Title = strings.TrimSpace(h.Title)
	res.Description = strings.TrimSpace(h.Description)
	res.Date = strings.TrimSpace(h.Date)

	switch v := h.Tags.(type) {
	case string:
		res.Tags = SplitTags(v)
	case []any:
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				res.Tags = append(res.Tags, s)
			}
		}
	}
}
