// Package csvutil holds the CSV conventions shared by the scrapers.
//
// The generated files are opened directly in German-locale Excel, so the
// tournament CSVs use a semicolon delimiter, a UTF-8 byte order mark, and a
// decimal comma in numeric columns. The card database CSVs use plain
// comma-separated UTF-8. Readers accept both.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options control delimiter and BOM handling for a CSV file.
type Options struct {
	Semicolon bool
	BOM       bool
}

// ExcelOptions are the conventions for the tournament/meta CSVs.
func ExcelOptions() Options {
	return Options{Semicolon: true, BOM: true}
}

// Writer wraps csv.Writer with header bookkeeping.
type Writer struct {
	w      *csv.Writer
	file   *os.File
	header []string
}

// Create opens path for writing (creating parent directories), writes the
// BOM if requested, and emits the header row.
func Create(path string, header []string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if opts.BOM {
		if _, err := f.Write(utf8BOM); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing BOM: %w", err)
		}
	}
	w := csv.NewWriter(f)
	if opts.Semicolon {
		w.Comma = ';'
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Writer{w: w, file: f, header: header}, nil
}

// Write writes one record.
func (w *Writer) Write(record []string) error {
	return w.w.Write(record)
}

// WriteMap writes a record built from fields in header order; missing keys
// become empty cells.
func (w *Writer) WriteMap(fields map[string]string) error {
	record := make([]string, len(w.header))
	for i, col := range w.header {
		record[i] = fields[col]
	}
	return w.w.Write(record)
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadAll reads a CSV file into row maps keyed by header column. A missing
// file returns nil rows and no error, matching the incremental scrapers'
// first-run behavior.
func ReadAll(path string, opts Options) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return Read(f, opts)
}

// Read reads CSV rows from r into maps keyed by header column.
func Read(r io.Reader, opts Options) ([]map[string]string, error) {
	cr := csv.NewReader(stripBOM(r))
	if opts.Semicolon {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FormatDecimal renders f with the given precision using a decimal comma.
func FormatDecimal(f float64, precision int) string {
	return strings.ReplaceAll(strconv.FormatFloat(f, 'f', precision, 64), ".", ",")
}

// ParseDecimal parses a float that may use either a decimal comma or point.
// Invalid input parses as zero, like the original readers.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseInt parses an integer cell, returning zero for blank or bad input.
func ParseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

type bomReader struct {
	r       io.Reader
	checked bool
}

func stripBOM(r io.Reader) io.Reader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		head = head[:n]
		if string(head) == string(utf8BOM) {
			return b.r.Read(p)
		}
		b.r = io.MultiReader(strings.NewReader(string(head)), b.r)
	}
	return b.r.Read(p)
}
