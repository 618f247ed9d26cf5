package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Format is an encoding of the ranked list.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

const yamlIndent = 2

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTable}
}

// ParseFormat accepts a format name case-insensitively; "yml" is an alias.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "yml" {
		f = FormatYAML
	}

	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatText, "":
		return renderText(w, rep.Files)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(normalized(rep))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(normalized(rep))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatTable:
		return renderTable(w, rep.Files)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// renderText writes one "<path> -- <score>" line per entry.
func renderText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		_, err := fmt.Fprintf(w, "%s -- %d\n", e.Path, e.Score)
		if err != nil {
			return err
		}
	}

	return nil
}

func renderTable(w io.Writer, entries []Entry) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"#", "Path", "Score"})

	for i, e := range entries {
		tbl.AppendRow(table.Row{i + 1, e.Path, e.Score})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d files", len(entries)), ""})

	_, err := io.WriteString(w, tbl.Render()+"\n")

	return err
}

// normalized never encodes files as null.
func normalized(rep *Report) *Report {
	if rep.Files != nil {
		return rep
	}

	cp := *rep
	cp.Files = []Entry{}

	return &cp
}
