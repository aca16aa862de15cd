package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
)

// Format names an output encoding for CLI listings.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user supplied format. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Table is tabular data with a header row.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Write encodes data in the given format. Table output needs a Table;
// other values fall back to JSON.
func Write(w io.Writer, format Format, data any, table *Table) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		out, err := yaml.MarshalWithOptions(data,
			yaml.Indent(2),
			yaml.IndentSequence(false),
		)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		if table == nil {
			return Write(w, FormatJSON, data, nil)
		}
		return writeTable(w, *table)
	}
}

func writeTable(w io.Writer, t Table) error {
	tw := tablewriter.NewTable(w)

	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	tw.Header(headers...)

	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := tw.Append(cells...); err != nil {
			return err
		}
	}
	return tw.Render()
}
