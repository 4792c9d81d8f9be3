package internal

import (
	"io"
	"os"

	"github.com/starford/nbsite/internal/exporter"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	stdout    io.Writer // status lines
	logOutput io.Writer
	converter exporter.Converter
}

func newApplication(opts []Option) *application {
	app := &application{
		version:   "dev",
		stdout:    os.Stdout,
		logOutput: os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithStdout redirects the build status lines.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithLogOutput redirects structured logs. The MCP command logs to stderr
// because stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithConverter replaces the external converter command.
func WithConverter(c exporter.Converter) Option {
	return func(a *application) {
		a.converter = c
	}
}
