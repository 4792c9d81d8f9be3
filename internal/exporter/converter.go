// Package exporter renders notebooks to HTML through an external converter.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/nbsite/internal/apperr"
)

// Export formats understood by the marimo CLI.
const (
	FormatHTML     = "html"
	FormatHTMLWasm = "html-wasm"
)

// Request describes one conversion.
type Request struct {
	Source      string // absolute path of the notebook
	Output      string // absolute path of the file to produce
	Format      string
	IncludeCode bool
	StaticOnly  bool
}

// Converter turns a notebook into an HTML file. Implementations must not
// modify the source notebook.
type Converter interface {
	Convert(ctx context.Context, req Request) error
}

// Command runs an external notebook CLI (marimo by default).
type Command struct {
	Bin string
}

// NewCommand returns a Command converter for the given binary.
func NewCommand(bin string) *Command {
	if bin == "" {
		bin = "marimo"
	}
	return &Command{Bin: bin}
}

// Args builds the argument list for req.
func (c *Command) Args(req Request) []string {
	format := req.Format
	if req.StaticOnly || format == "" {
		format = FormatHTML
	}
	args := []string{"export", format, req.Source, "-o", req.Output}
	if req.IncludeCode {
		args = append(args, "--include-code")
	} else {
		args = append(args, "--no-include-code")
	}
	if format == FormatHTMLWasm {
		args = append(args, "--mode", "run")
	}
	return args
}

// Convert runs the converter and waits for it. A non-zero exit, a missing
// binary or an expired context yields an *apperr.ConversionError.
func (c *Command) Convert(ctx context.Context, req Request) error {
	args := c.Args(req)
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("%s exited with status %d: %w", c.Bin, exitErr.ExitCode(), err)
		}
		return &apperr.ConversionError{
			Source: req.Source,
			Format: args[1],
			Output: strings.TrimSpace(out.String()),
			Err:    err,
		}
	}
	return nil
}
