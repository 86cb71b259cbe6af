// Package output renders CLI command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how command results are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a --output flag value to a Format. The empty string
// means table, and "yml" is accepted as a spelling of yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format %q (valid: table, json, yaml)", s)
}

func (f Format) String() string { return string(f) }

// Printer writes human-facing status lines, with ANSI color when the
// terminal supports it.
type Printer struct {
	out   io.Writer
	forma Format
	color bool
}

// NewPrinter creates a printer for the given writer and format.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, forma: format, color: color}
}

// Format returns the printer's render format.
func (p *Printer) Format() Format { return p.forma }

// Success writes msg in green when color is on.
func (p *Printer) Success(msg string) {
	p.line("\033[32m", msg)
}

// Error writes msg in red when color is on.
func (p *Printer) Error(msg string) {
	p.line("\033[31m", msg)
}

func (p *Printer) line(ansi, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s\033[0m\n", ansi, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
