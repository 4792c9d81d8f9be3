// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/nbsite/internal/api"
	"github.com/starford/nbsite/internal/catalog"
	"github.com/starford/nbsite/internal/exporter"
	"github.com/starford/nbsite/internal/index"
	"github.com/starford/nbsite/internal/mcpserver"
	"github.com/starford/nbsite/internal/models"
	"github.com/starford/nbsite/internal/notebookservice"
	"github.com/starford/nbsite/internal/parser"
	"github.com/starford/nbsite/internal/pipeline"
	"github.com/starford/nbsite/internal/site"
	"github.com/starford/nbsite/internal/sse"
	"github.com/starford/nbsite/internal/storage"
)

// Build runs the site pipeline once and prints the status lines.
func Build(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	if _, err := app.build(ctx, logger); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "Website built successfully in %s directory\n", app.config.Site.OutputDir)
	fmt.Fprintln(app.stdout, "To view it locally, run: nbsite serve")
	return nil
}

// Serve builds the site, then serves it together with the preview API. With
// watch set, source changes trigger a rebuild and an SSE notification.
func Serve(ctx context.Context, watch bool, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	res, err := app.build(ctx, logger)
	if err != nil {
		return err
	}

	src, err := storage.NewFS(cfg.Site.NotebooksDir)
	if err != nil {
		return fmt.Errorf("init notebooks dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc := notebookservice.NewService(src, db, logger)
	if err := svc.Refresh(ctx, res.Catalog); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if watch {
		g.Go(func() error {
			dirs := []string{cfg.Site.NotebooksDir, cfg.Site.TemplatesDir, cfg.Site.StaticDir}
			return index.Watch(gCtx, dirs, index.DefaultDebounce, logger, func(changed []string) {
				app.rebuild(gCtx, logger, svc, broker, changed)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server",
			slog.String("address", cfg.App.HTTP.Address()),
			slog.Bool("watch", watch))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Streaming SSE clients would otherwise hold Shutdown open.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down, so the
// watcher stops with it.
var errShutdown = errors.New("shutdown")

// MCP serves catalog tools over stdio. The catalog of the last build is used
// when present; otherwise metadata is extracted from the sources without
// exporting.
func MCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	src, err := storage.NewFS(cfg.Site.NotebooksDir)
	if err != nil {
		return fmt.Errorf("init notebooks dir: %w", err)
	}
	c, err := loadCatalog(cfg, src, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc := notebookservice.NewService(src, db, logger)
	if err := svc.Refresh(ctx, c); err != nil {
		return fmt.Errorf("index catalog: %w", err)
	}

	logger.Info("MCP server starting", slog.Int("notebooks", len(c)))
	return mcpserver.New(svc, app.version).ServeStdio()
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg.App, app)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("notebooks_dir", cfg.Site.NotebooksDir),
		slog.String("output_dir", cfg.Site.OutputDir),
		slog.String("templates_dir", cfg.Site.TemplatesDir),
		slog.String("export_format", cfg.Export.Format),
		slog.String("log_level", cfg.App.LogLevel.String()))
	return app, logger, nil
}

func newLogger(cfg ApplicationConfig, app *application) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(app.logOutput, hopts))
	}
	return slog.New(slog.NewJSONHandler(app.logOutput, hopts))
}

// build wires a fresh pipeline and runs it. Templates are reloaded on every
// call so watch mode picks up theme edits.
func (app *application) build(ctx context.Context, logger *slog.Logger) (*pipeline.Result, error) {
	cfg := app.config

	src, err := storage.NewFS(cfg.Site.NotebooksDir)
	if err != nil {
		return nil, fmt.Errorf("init notebooks dir: %w", err)
	}
	out, err := storage.EnsureFS(cfg.Site.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init output dir: %w", err)
	}
	tmpl, err := site.LoadTemplatesDir(cfg.Site.TemplatesDir)
	if err != nil {
		return nil, err
	}

	conv := app.converter
	if conv == nil {
		conv = exporter.NewCommand(cfg.Export.Command)
	}
	exp := exporter.New(conv, out, cfg.Export.Options(), logger)
	asm := site.NewAssembler(out, tmpl, cfg.Site.StaticDir, logger)
	return pipeline.NewBuilder(src, out, exp, asm, logger).Build(ctx)
}

// rebuild runs on the watcher goroutine, so rebuilds never overlap.
func (app *application) rebuild(ctx context.Context, logger *slog.Logger, svc *notebookservice.Service, broker *sse.Broker, changed []string) {
	logger.Info("watch: rebuilding", slog.Int("changed", len(changed)))
	rel := make([]string, len(changed))
	for i, p := range changed {
		rel[i] = filepath.Base(p)
	}

	start := time.Now()
	res, err := app.build(ctx, logger)
	if err != nil {
		logger.Error("watch: rebuild failed", slog.String("error", err.Error()))
		broker.PublishBuild(sse.BuildEvent{
			Changed:    rel,
			DurationMS: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		})
		return
	}
	if err := svc.Refresh(ctx, res.Catalog); err != nil {
		logger.Warn("watch: index sync failed", slog.String("error", err.Error()))
	}
	broker.PublishBuild(sse.BuildEvent{
		Notebooks:  len(res.Catalog),
		Pages:      len(res.Pages),
		Skipped:    res.Skipped,
		Changed:    rel,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func newHTTPHandler(cfg *Config, svc *notebookservice.Service, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(filepath.Join(cfg.Site.OutputDir, "index.html")); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"building"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	// The generated site.
	r.Handle("/*", http.FileServer(http.Dir(cfg.Site.OutputDir)))
	return r
}

// loadCatalog returns the catalog written by the last build, or extracts one
// from the sources when no build output exists.
func loadCatalog(cfg *Config, src storage.Provider, logger *slog.Logger) (models.Catalog, error) {
	c, err := catalog.Load(filepath.Join(cfg.Site.OutputDir, filepath.FromSlash(catalog.File)))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	logger.Info("no catalog found, extracting metadata from sources")

	sources, err := src.List("")
	if err != nil {
		return nil, err
	}
	c = make(models.Catalog, 0, len(sources))
	for _, s := range sources {
		nb, err := parser.Extract(s.Path)
		if err != nil {
			return nil, err
		}
		c = append(c, nb)
	}
	return c, nil
}
