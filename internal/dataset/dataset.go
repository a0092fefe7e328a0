package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const DefaultSeparator = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Dataset is an ordered table of string cells. Rows may be shorter than the
// header; missing cells read as "".
type Dataset struct {
	Columns []string
	Rows    [][]string
}

func (d Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of name, or -1.
func (d Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

func (d Dataset) Value(row, col int) string {
	return valueAt(d.Rows[row], col)
}

// WithColumn returns a copy of d where column name holds values. An existing
// column is overwritten in place; otherwise the column is appended.
func (d Dataset) WithColumn(name string, values []string) (Dataset, error) {
	if len(values) != len(d.Rows) {
		return Dataset{}, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(d.Rows))
	}
	idx := d.ColumnIndex(name)
	width := len(d.Columns)
	out := Dataset{Columns: append([]string(nil), d.Columns...)}
	if idx < 0 {
		idx = width
		width++
		out.Columns = append(out.Columns, name)
	}
	out.Rows = make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		cells := make([]string, width)
		// Cells past the header have no column and are dropped.
		copy(cells, row[:min(len(row), len(d.Columns))])
		cells[idx] = values[i]
		out.Rows[i] = cells
	}
	return out, nil
}

// Preview returns at most n leading rows.
func (d Dataset) Preview(n int) Dataset {
	if n < 0 || n >= len(d.Rows) {
		n = len(d.Rows)
	}
	return Dataset{Columns: d.Columns, Rows: d.Rows[:n]}
}

// Read parses CSV with the given separator. UTF-8 (with or without BOM) is
// used when the input is valid UTF-8; anything else is decoded as
// Windows-1252.
func Read(r io.Reader, sep rune) (Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv: %w", err)
	}
	data, err := decode(raw)
	if err != nil {
		return Dataset{}, err
	}
	if sep == 0 {
		sep = DefaultSeparator
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, errors.New("empty csv")
		}
		return Dataset{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	ds := Dataset{Columns: header}
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Dataset{}, fmt.Errorf("read csv row %d: %w", len(ds.Rows), err)
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds, nil
}

func Write(w io.Writer, ds Dataset, sep rune) error {
	if sep == 0 {
		sep = DefaultSeparator
	}
	writer := csv.NewWriter(w)
	writer.Comma = sep
	if err := writer.Write(ds.Columns); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		cells := make([]string, len(ds.Columns))
		copy(cells, row)
		if err := writer.Write(cells); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFile(path string, sep rune) (Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()
	ds, err := Read(file, sep)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

func WriteFile(path string, ds Dataset, sep rune) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := Write(file, ds, sep); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	return file.Close()
}

// OutputPath picks a fresh file for processed output under dir.
func OutputPath(dir string) (string, error) {
	tmp, err := os.MkdirTemp(dir, "triagem_")
	if err != nil {
		return "", err
	}
	return filepath.Join(tmp, "tickets_processados.csv"), nil
}

// ParseSeparator accepts a single character; "\t" and "tab" mean a tab.
func ParseSeparator(s string) (rune, error) {
	switch s {
	case "":
		return DefaultSeparator, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid separator %q", s)
	}
	return r, nil
}

func decode(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode csv as windows-1252: %w", err)
	}
	return out, nil
}

func valueAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
