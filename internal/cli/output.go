package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/phelbig/tcgdata/internal/logger"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains the summary a subcommand reports after a run.
type OutputResult struct {
	Command   string            `json:"command"`
	CheckedAt time.Time         `json:"checked_at"`
	NewItems  int               `json:"new_items"`
	Counts    map[string]int    `json:"counts,omitempty"`
	Files     []string          `json:"files,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
	Table     *SummaryTable     `json:"table,omitempty"`
	Metrics   map[string]int64  `json:"metrics,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// SummaryTable is a small table rendered on stdout in text mode, for
// example the top archetypes of a run.
type SummaryTable struct {
	Title  string     `json:"title"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat) error {
	attachMetrics(result)
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// attachMetrics copies the run's counters and timing summaries into the
// result. Results that already carry metrics are left alone.
func attachMetrics(result *OutputResult) {
	if result.Metrics != nil {
		return
	}
	counters, timings := logger.MetricsSnapshot()
	if len(counters) > 0 {
		result.Metrics = counters
	}
	if len(timings) > 0 {
		result.Extra = make(map[string]string, len(timings))
		for name, ts := range timings {
			result.Extra[name] = fmt.Sprintf("%d calls, avg %s", ts.Count, ts.Average)
		}
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult) error {
	if result.NewItems == 0 {
		fmt.Fprintf(w, "%s: no new data.\n", result.Command)
	} else {
		fmt.Fprintf(w, "%s: %d new item(s).\n", result.Command, result.NewItems)
	}

	names := make([]string, 0, len(result.Counts))
	for name := range result.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, result.Counts[name])
	}
	for _, note := range result.Notes {
		fmt.Fprintf(w, "  %s\n", note)
	}

	if result.Table != nil && len(result.Table.Rows) > 0 {
		renderTable(w, result.Table)
	}

	if len(result.Files) > 0 {
		fmt.Fprintln(w, "Written:")
		for _, file := range result.Files {
			fmt.Fprintf(w, "  %s\n", file)
		}
	}
	return nil
}

func renderTable(w io.Writer, st *SummaryTable) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if st.Title != "" {
		t.SetTitle(st.Title)
	}
	header := make(table.Row, len(st.Header))
	for i, h := range st.Header {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range st.Rows {
		r := make(table.Row, len(row))
		for i, c := range row {
			r[i] = c
		}
		t.AppendRow(r)
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
