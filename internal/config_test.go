package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestExportConfig_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ExportConfig)
		ok     bool
	}{
		{"defaults", func(*ExportConfig) {}, true},
		{"static html", func(c *ExportConfig) { c.Format = "html" }, true},
		{"skip policy", func(c *ExportConfig) { c.OnError = "skip" }, true},
		{"unknown format", func(c *ExportConfig) { c.Format = "pdf" }, false},
		{"unknown policy", func(c *ExportConfig) { c.OnError = "retry" }, false},
		{"empty command", func(c *ExportConfig) { c.Command = "" }, false},
		{"negative timeout", func(c *ExportConfig) { c.Timeout = -time.Second }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Export
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestExportConfig_Options(t *testing.T) {
	cfg := NewDefaultConfig().Export
	opts := cfg.Options()
	if opts.Format != "html-wasm" || !opts.Static || !opts.IncludeSource || opts.IncludeCode ||
		opts.Timeout != 5*time.Minute || opts.OnError != "fail" {
		t.Errorf("options = %+v", opts)
	}
}

func TestSiteConfig_OutputMustDifferFromInputs(t *testing.T) {
	cfg := NewDefaultConfig().Site
	cfg.OutputDir = "./notebooks/"
	if err := cfg.Validate(); err == nil {
		t.Error("output dir equal to notebooks dir should fail")
	}

	cfg = NewDefaultConfig().Site
	cfg.OutputDir = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty output dir should fail")
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig().App
	cfg.LogFormat = ""
	if err := cfg.Validate(); err != nil || cfg.LogFormat != LogFormatJSON {
		t.Errorf("empty format: %v, %q", err, cfg.LogFormat)
	}
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown log format should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
