package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nbsite/internal/exporter"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" toml:"app"`
	Site   SiteConfig        `yaml:"site" toml:"site"`
	Export ExportConfig      `yaml:"export" toml:"export"`
	SQLite SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format"`
	HTTP      HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig holds the input and output directories of a build.
type SiteConfig struct {
	NotebooksDir string `yaml:"notebooks_dir" toml:"notebooks_dir"`
	TemplatesDir string `yaml:"templates_dir" toml:"templates_dir"` // empty selects the embedded theme
	StaticDir    string `yaml:"static_dir" toml:"static_dir"`
	OutputDir    string `yaml:"output_dir" toml:"output_dir"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.NotebooksDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
	); err != nil {
		return err
	}
	out := filepath.Clean(c.OutputDir)
	for _, in := range []string{c.NotebooksDir, c.TemplatesDir, c.StaticDir} {
		if in != "" && filepath.Clean(in) == out {
			return fmt.Errorf("site: output_dir %q must differ from input directory %q", c.OutputDir, in)
		}
	}
	return nil
}

// ExportConfig controls the external notebook converter.
type ExportConfig struct {
	Command       string        `yaml:"command" toml:"command"`
	Format        string        `yaml:"format" toml:"format"`
	Static        bool          `yaml:"static" toml:"static"`
	IncludeSource bool          `yaml:"include_source" toml:"include_source"`
	IncludeCode   bool          `yaml:"include_code" toml:"include_code"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout"`
	OnError       string        `yaml:"on_error" toml:"on_error"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In(exporter.FormatHTML, exporter.FormatHTMLWasm)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.OnError, validation.Required, validation.In(exporter.OnErrorFail, exporter.OnErrorSkip)),
	)
}

// Options converts the section into exporter options.
func (c *ExportConfig) Options() exporter.Options {
	return exporter.Options{
		Format:        c.Format,
		Static:        c.Static,
		IncludeSource: c.IncludeSource,
		IncludeCode:   c.IncludeCode,
		Timeout:       c.Timeout,
		OnError:       c.OnError,
	}
}

// SQLiteConfig holds the catalog search index location.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the preview API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8000,
			},
		},
		Site: SiteConfig{
			NotebooksDir: "notebooks",
			StaticDir:    "static",
			OutputDir:    "_site",
		},
		Export: ExportConfig{
			Command:       "marimo",
			Format:        exporter.FormatHTMLWasm,
			Static:        true,
			IncludeSource: true,
			Timeout:       5 * time.Minute,
			OnError:       exporter.OnErrorFail,
		},
		SQLite: SQLiteConfig{
			Path: ".nbsite/catalog.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
