package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how command results are rendered on stdout.
type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Printer renders a command result.
type Printer interface {
	Print(w io.Writer, v any) error
}

// NewPrinter returns the printer for format ("json" or "yaml").
func NewPrinter(format string) (Printer, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(format))) {
	case OutputJSON, "":
		return jsonPrinter{}, nil
	case OutputYAML, "yml":
		return yamlPrinter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output %q (supported: json, yaml)", format)
	}
}

type jsonPrinter struct{}

func (jsonPrinter) Print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	return nil
}

type yamlPrinter struct{}

func (yamlPrinter) Print(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	return enc.Close()
}
