package internal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nbsite/internal/exporter"
	"github.com/starford/nbsite/internal/notebookservice"
	"github.com/starford/nbsite/internal/sse"
	"github.com/starford/nbsite/internal/testutil"
)

type fakeConverter struct{}

func (fakeConverter) Convert(_ context.Context, req exporter.Request) error {
	return os.WriteFile(req.Output, []byte("<html>"+req.Format+"</html>"), 0o644)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Site.NotebooksDir = filepath.Join(root, "notebooks")
	cfg.Site.StaticDir = filepath.Join(root, "static")
	cfg.Site.OutputDir = filepath.Join(root, "_site")
	cfg.SQLite.Path = filepath.Join(root, ".nbsite", "catalog.db")

	if err := os.MkdirAll(cfg.Site.NotebooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	demo := "# Title: Demo\n# Tags: x, y\nimport marimo\n"
	if err := os.WriteFile(filepath.Join(cfg.Site.NotebooksDir, "demo.py"), []byte(demo), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func buildOpts(cfg *Config, stdout io.Writer) []Option {
	return []Option{
		WithConfig(cfg),
		WithStdout(stdout),
		WithLogOutput(io.Discard),
		WithConverter(fakeConverter{}),
	}
}

func TestBuild_PrintsStatus(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	if err := Build(context.Background(), buildOpts(cfg, &out)...); err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := "Website built successfully in " + cfg.Site.OutputDir + " directory\n" +
		"To view it locally, run: nbsite serve\n"
	if out.String() != want {
		t.Errorf("stdout = %q, want %q", out.String(), want)
	}
	for _, name := range []string{"index.html", "view_demo.html", "notebooks/demo.html"} {
		if _, err := os.Stat(filepath.Join(cfg.Site.OutputDir, filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if err := Build(context.Background(), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestBuild_MissingNotebooksDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Site.NotebooksDir = filepath.Join(t.TempDir(), "absent")
	var out bytes.Buffer
	if err := Build(context.Background(), buildOpts(cfg, &out)...); err == nil {
		t.Fatal("expected error for missing notebooks dir")
	}
	if out.Len() != 0 {
		t.Errorf("status printed on failure: %q", out.String())
	}
}

func TestLoadCatalog_FallsBackToSources(t *testing.T) {
	cfg := testConfig(t)
	_, src := testutil.TestNotebooks(t, map[string]string{
		"a.py": "# Title: Alpha\n",
		"b.md": "---\ntitle: Beta\ntags: [t]\n---\n",
	})

	c, err := loadCatalog(cfg, src, testutil.Logger())
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if len(c) != 2 || c[0].Title != "Alpha" || c[1].Title != "Beta" {
		t.Fatalf("catalog = %+v", c)
	}
	if c[0].HTMLPath != "" {
		t.Errorf("extracted entry should carry no artifacts: %+v", c[0])
	}
}

func TestLoadCatalog_UsesBuildOutput(t *testing.T) {
	cfg := testConfig(t)
	if err := Build(context.Background(), buildOpts(cfg, io.Discard)...); err != nil {
		t.Fatal(err)
	}
	_, src := testutil.TestNotebooks(t, nil)

	c, err := loadCatalog(cfg, src, testutil.Logger())
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if len(c) != 1 || c[0].Title != "Demo" || c[0].HTMLPath == "" {
		t.Fatalf("catalog = %+v", c)
	}
}

func TestHTTPHandler(t *testing.T) {
	cfg := testConfig(t)
	_, src := testutil.TestNotebooks(t, nil)
	svc := notebookservice.NewService(src, testutil.TestDB(t), testutil.Logger())
	broker := sse.NewBroker(0)
	defer broker.Close()
	h := newHTTPHandler(cfg, svc, broker)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/health/live"); rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
	if rec := get("/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before build = %d", rec.Code)
	}

	if err := Build(context.Background(), buildOpts(cfg, io.Discard)...); err != nil {
		t.Fatal(err)
	}
	if rec := get("/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("ready after build = %d", rec.Code)
	}
	rec := get("/view_demo.html")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Demo") {
		t.Errorf("detail page = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get("/api/tags"); rec.Code != http.StatusOK {
		t.Errorf("api tags = %d", rec.Code)
	}
}
