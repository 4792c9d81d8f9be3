package site

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/starford/nbsite/internal/apperr"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCatalog() models.Catalog {
	return models.Catalog{
		{
			Filename:     "foo.py",
			Title:        "Foo Distribution",
			Description:  "The *foo* family",
			Tags:         []string{"b", "a"},
			LastModified: 1746619200,
			HTMLPath:     "notebooks/foo.html",
			NotebookPath: "notebooks/foo.py",
		},
		{
			Filename: "bar.py",
			Title:    "Bar",
			Tags:     []string{"a"},
			Date:     "2025-05-07",
			HTMLPath: "notebooks/bar.html",
		},
	}
}

func (a *Assembler) assemble(c models.Catalog) (*Report, error) {
	r, err := a.Render(c)
	if err != nil {
		return nil, err
	}
	return a.Commit(r)
}

func newAssembler(t *testing.T, staticDir string) (*Assembler, *storage.FS) {
	t.Helper()
	out, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tmpl, err := DefaultTemplates()
	if err != nil {
		t.Fatalf("DefaultTemplates: %v", err)
	}
	return NewAssembler(out, tmpl, staticDir, testLogger()), out
}

func TestAssemble_DefaultTheme(t *testing.T) {
	a, out := newAssembler(t, "")
	report, err := a.assemble(testCatalog())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []string{"index.html", "view_foo.html", "view_bar.html"}
	if strings.Join(report.Pages, ",") != strings.Join(want, ",") {
		t.Errorf("pages = %v, want %v", report.Pages, want)
	}
	if strings.Join(report.Tags, ",") != "a,b" {
		t.Errorf("tags = %v", report.Tags)
	}

	index, _ := out.Read("index.html")
	for _, s := range []string{`data-tag="a"`, `data-tag="b"`, `href="view_foo.html"`, `<em>foo</em>`, "2025-05-07"} {
		if !bytes.Contains(index, []byte(s)) {
			t.Errorf("index.html missing %q", s)
		}
	}

	detail, _ := out.Read("view_foo.html")
	for _, s := range []string{"<title>Foo Distribution</title>", `src="notebooks/foo.html"`, `href="notebooks/foo.py"`, `href="view_bar.html"`} {
		if !bytes.Contains(detail, []byte(s)) {
			t.Errorf("view_foo.html missing %q", s)
		}
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	staticDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{}"), 0o644)
	a, out := newAssembler(t, staticDir)

	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}
	first := snapshot(t, out.Root())
	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}
	second := snapshot(t, out.Root())

	if len(first) != len(second) {
		t.Fatalf("file count changed: %d vs %d", len(first), len(second))
	}
	for name, data := range first {
		if !bytes.Equal(data, second[name]) {
			t.Errorf("%s differs between runs", name)
		}
	}
	if _, ok := first["static/style.css"]; !ok {
		t.Error("static asset not staged")
	}
}

func snapshot(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		data, err := os.ReadFile(p)
		out[filepath.ToSlash(rel)] = data
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestAssemble_StaticReplaced(t *testing.T) {
	staticDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(staticDir, "old.css"), []byte("old"), 0o644)
	a, out := newAssembler(t, staticDir)
	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}

	_ = os.Remove(filepath.Join(staticDir, "old.css"))
	_ = os.WriteFile(filepath.Join(staticDir, "new.css"), []byte("new"), 0o644)
	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}
	if _, err := out.Read("static/old.css"); err == nil {
		t.Error("stale asset survived the rebuild")
	}
	if _, err := out.Read("static/new.css"); err != nil {
		t.Errorf("new asset missing: %v", err)
	}
}

func TestAssemble_MissingStaticDirIsFine(t *testing.T) {
	a, _ := newAssembler(t, filepath.Join(t.TempDir(), "absent"))
	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
}

func TestAssemble_EmptyCatalog(t *testing.T) {
	a, out := newAssembler(t, "")
	report, err := a.assemble(models.Catalog{})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(report.Pages) != 1 {
		t.Errorf("pages = %v, want only index", report.Pages)
	}
	if _, err := out.Read("index.html"); err != nil {
		t.Error(err)
	}
}

func TestAssemble_CollidingStems(t *testing.T) {
	a, _ := newAssembler(t, "")
	c := models.Catalog{{Filename: "foo.py", Title: "A"}, {Filename: "foo.md", Title: "B"}}
	if _, err := a.assemble(c); err == nil {
		t.Fatal("expected collision error")
	}
}

func TestLoadTemplates_Missing(t *testing.T) {
	fsys := fstest.MapFS{"index.html": {Data: []byte("{{.tags}}")}}
	_, err := LoadTemplates(fsys)
	var te *apperr.TemplateError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *apperr.TemplateError", err)
	}
	if te.Template != NotebookTemplate || !errors.Is(err, apperr.ErrMissingTemplate) {
		t.Errorf("template error = %+v", te)
	}
}

func TestLoadTemplatesDir_Missing(t *testing.T) {
	_, err := LoadTemplatesDir(filepath.Join(t.TempDir(), "absent"))
	var ioErr *apperr.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want *apperr.IOError", err)
	}
}

func TestAssemble_UndefinedFieldLeavesSiteUntouched(t *testing.T) {
	out, _ := storage.NewFS(t.TempDir())
	good, _ := DefaultTemplates()
	if _, err := NewAssembler(out, good, "", testLogger()).assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}
	before, _ := out.Read("index.html")

	fsys := fstest.MapFS{
		"index.html":    {Data: []byte(`{{range .notebooks}}{{.Title}}{{end}}`)},
		"notebook.html": {Data: []byte(`{{.notebook.Author}}`)},
	}
	bad, err := LoadTemplates(fsys)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	_, err = NewAssembler(out, bad, "", testLogger()).assemble(testCatalog())
	if !IsTemplateError(err) {
		t.Fatalf("err = %v, want template error", err)
	}
	after, _ := out.Read("index.html")
	if !bytes.Equal(before, after) {
		t.Error("index.html was overwritten by a failed build")
	}
}

func TestRender_UndefinedContextKey(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":    {Data: []byte(`{{.missing}}`)},
		"notebook.html": {Data: []byte(`{{.notebook.Title}}`)},
	}
	tmpl, err := LoadTemplates(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.Render(IndexTemplate, map[string]any{"notebooks": nil, "tags": nil}); !IsTemplateError(err) {
		t.Errorf("err = %v, want template error", err)
	}
}

func TestLoadTemplates_BaseAndPartials(t *testing.T) {
	fsys := fstest.MapFS{
		"base.html":            {Data: []byte(`<h1>{{block "title" .}}Default{{end}}</h1>{{template "footer.html" .}}`)},
		"index.html":           {Data: []byte(`{{define "title"}}Index of {{len .notebooks}}{{end}}`)},
		"notebook.html":        {Data: []byte(`{{define "title"}}{{.notebook.Title}}{{end}}`)},
		"partials/footer.html": {Data: []byte(`<footer>{{len .notebooks}} notebooks</footer>`)},
	}
	tmpl, err := LoadTemplates(fsys)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	c := testCatalog()
	got, err := tmpl.Render(NotebookTemplate, map[string]any{"notebook": c[0], "notebooks": []models.Notebook(c)})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(got) != "<h1>Foo Distribution</h1><footer>2 notebooks</footer>" {
		t.Errorf("rendered = %q", got)
	}
	got, _ = tmpl.Render(IndexTemplate, map[string]any{"notebooks": []models.Notebook(c), "tags": c.Tags()})
	if string(got) != "<h1>Index of 2</h1><footer>2 notebooks</footer>" {
		t.Errorf("rendered index = %q", got)
	}
}

func TestHelpers(t *testing.T) {
	if got := slug("Chap 1: PDF/CDF"); got != "chap-1-pdf-cdf" {
		t.Errorf("slug = %q", got)
	}
	if got := formatTime(1746619200); got != "2025-05-07" {
		t.Errorf("formatTime = %q", got)
	}
	if got := formatTime(0); got != "" {
		t.Errorf("formatTime(0) = %q", got)
	}
	html, err := renderMarkdown("**bold** <script>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<strong>bold</strong>") || strings.Contains(string(html), "<script>") {
		t.Errorf("markdown = %q", html)
	}
}

func TestRender_WritesNothingUntilCommit(t *testing.T) {
	a, out := newAssembler(t, "")
	r, err := a.Render(testCatalog())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := out.Read("index.html"); err == nil {
		t.Fatal("Render wrote index.html")
	}
	report, err := a.Commit(r)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	for _, name := range report.Pages {
		if _, err := out.Read(name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestAssemble_SharedTagsHaveNoDuplicateIDs(t *testing.T) {
	a, out := newAssembler(t, "")
	if _, err := a.assemble(testCatalog()); err != nil {
		t.Fatal(err)
	}
	index, err := out.Read("index.html")
	if err != nil {
		t.Fatal(err)
	}
	// Both notebooks carry tag "a".
	if n := strings.Count(string(index), `class="tag tag-a"`); n != 2 {
		t.Errorf("tag-a spans = %d, want 2", n)
	}
	seen := map[string]bool{}
	for _, m := range regexp.MustCompile(`id="([^"]+)"`).FindAllStringSubmatch(string(index), -1) {
		if seen[m[1]] {
			t.Errorf("duplicate id %q", m[1])
		}
		seen[m[1]] = true
	}
}
