package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Format is an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatNDJSON  Format = "ndjson"
)

// ParseFormats validates a list of format names, dropping duplicates and
// keeping the first-seen order.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool)
	var out []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f == "" {
			continue
		}
		switch f {
		case FormatCSV, FormatParquet, FormatNDJSON:
		default:
			return nil, fmt.Errorf("unknown output format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Schema describes the tables a Writer can receive.
type Schema interface {
	// Columns returns the column names of table in order.
	Columns(table string) []string
	// Prototype returns a pointer to a zero row of table.
	Prototype(table string) any
	// Strings renders one row in Columns order.
	Strings(row any) []string
}

// Sink receives rows table by table.
type Sink interface {
	WriteRows(table string, rows []any) error
	Close() error
}

// tableFile is one open output file.
type tableFile interface {
	write(rows []any) error
	close() error
}

// Writer is a Sink that keeps one file per table and format under a
// directory. Files are created on the first non-empty write, so tables that
// never receive rows produce no file.
type Writer struct {
	dir     string
	formats []Format
	schema  Schema
	files   map[string]tableFile
	paths   []string
	rows    map[string]int
}

// NewWriter creates dir if needed and returns a Writer for formats.
func NewWriter(dir string, formats []Format, schema Schema) (*Writer, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{
		dir:     dir,
		formats: formats,
		schema:  schema,
		files:   make(map[string]tableFile),
		rows:    make(map[string]int),
	}, nil
}

func (w *Writer) WriteRows(table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}
	for _, f := range w.formats {
		tf, err := w.open(table, f)
		if err != nil {
			return err
		}
		if err := tf.write(rows); err != nil {
			return fmt.Errorf("write %s.%s: %w", table, f, err)
		}
	}
	w.rows[table] += len(rows)
	return nil
}

func (w *Writer) open(table string, f Format) (tableFile, error) {
	key := table + "." + string(f)
	if tf, ok := w.files[key]; ok {
		return tf, nil
	}
	path := filepath.Join(w.dir, key)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	var tf tableFile
	switch f {
	case FormatCSV:
		tf, err = newCSVFile(file, w.schema.Columns(table), w.schema.Strings)
	case FormatParquet:
		tf, err = newParquetFile(file, w.schema.Prototype(table))
	case FormatNDJSON:
		tf = newNDJSONFile(file)
	default:
		err = fmt.Errorf("unknown output format %q", f)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	w.files[key] = tf
	w.paths = append(w.paths, path)
	return tf, nil
}

// Close flushes and closes every file, returning the first error.
func (w *Writer) Close() error {
	var first error
	keys := make([]string, 0, len(w.files))
	for k := range w.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.files[k].close(); err != nil && first == nil {
			first = fmt.Errorf("close %s: %w", k, err)
		}
	}
	w.files = map[string]tableFile{}
	return first
}

// Paths returns the files created so far, in creation order.
func (w *Writer) Paths() []string {
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// RowCounts returns how many rows each table received.
func (w *Writer) RowCounts() map[string]int {
	out := make(map[string]int, len(w.rows))
	for k, v := range w.rows {
		out[k] = v
	}
	return out
}
