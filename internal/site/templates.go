package site

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/yuin/goldmark"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
)

// Template names a theme must provide.
const (
	IndexTemplate    = "index.html"
	NotebookTemplate = "notebook.html"
	baseTemplate     = "base.html"
)

//go:embed theme/*.html
var defaultTheme embed.FS

// Templates holds one parsed template set per page kind.
type Templates struct {
	pages map[string]*template.Template
	entry map[string]string // template to execute per page
}

// DefaultTemplates returns the embedded theme.
func DefaultTemplates() (*Templates, error) {
	sub, err := fs.Sub(defaultTheme, "theme")
	if err != nil {
		return nil, err
	}
	return LoadTemplates(sub)
}

// LoadTemplatesDir loads a theme from a directory on disk. An empty dir
// selects the embedded theme.
func LoadTemplatesDir(dir string) (*Templates, error) {
	if dir == "" {
		return DefaultTemplates()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperr.IO("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, apperr.IO("stat", dir, fmt.Errorf("not a directory"))
	}
	return LoadTemplates(os.DirFS(dir))
}

// LoadTemplates parses index.html and notebook.html from fsys. When base.html
// exists every page is parsed together with it and executed through it, so
// pages override the layout's blocks. Files under partials/ are shared by all
// pages.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	hasBase := exists(fsys, baseTemplate)
	partials, err := fs.Glob(fsys, "partials/*.html")
	if err != nil {
		return nil, &apperr.TemplateError{Template: "partials", Err: err}
	}

	t := &Templates{
		pages: make(map[string]*template.Template),
		entry: make(map[string]string),
	}
	for _, name := range []string{IndexTemplate, NotebookTemplate} {
		if !exists(fsys, name) {
			return nil, &apperr.TemplateError{Template: name, Err: apperr.ErrMissingTemplate}
		}
		// The layout is parsed first so the page's definitions replace its
		// default blocks.
		var files []string
		entry := name
		if hasBase {
			files = append(files, baseTemplate)
			entry = baseTemplate
		}
		files = append(files, name)
		files = append(files, partials...)

		tpl, err := template.New(name).Funcs(funcMap()).Option("missingkey=error").ParseFS(fsys, files...)
		if err != nil {
			return nil, &apperr.TemplateError{Template: name, Err: err}
		}
		t.pages[name] = tpl
		t.entry[name] = entry
	}
	return t, nil
}

// Render executes the page template name with data.
func (t *Templates) Render(name string, data any) ([]byte, error) {
	tpl, ok := t.pages[name]
	if !ok {
		return nil, &apperr.TemplateError{Template: name, Err: apperr.ErrMissingTemplate}
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, t.entry[name], data); err != nil {
		return nil, &apperr.TemplateError{Template: name, Err: err}
	}
	return buf.Bytes(), nil
}

func exists(fsys fs.FS, name string) bool {
	_, err := fs.Stat(fsys, name)
	return err == nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown":   renderMarkdown,
		"join":       strings.Join,
		"formatTime": formatTime,
		"detailPage": models.DetailPage,
		"slug":       slug,
	}
}

func renderMarkdown(s string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(s), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
}

// formatTime renders epoch seconds as a UTC date.
func formatTime(sec float64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format("2006-01-02")
}

// slug lowercases s and collapses every run of non-alphanumerics into "-".
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// IsTemplateError reports whether err is a template failure.
func IsTemplateError(err error) bool {
	var te *apperr.TemplateError
	return errors.As(err, &te)
}
