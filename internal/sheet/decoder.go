package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a decoded spreadsheet: the first row and everything after it.
// Cells may be strings or numbers depending on the decoder.
type Table struct {
	Header []any
	Rows   [][]any
}

// Decoder turns uploaded spreadsheet bytes into a Table.
type Decoder interface {
	Decode(r io.Reader) (*Table, error)
	Format() string
}

// Registry holds decoders keyed by format.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds a decoder. Panics on duplicate format.
func (r *Registry) Register(d Decoder) {
	key := strings.ToLower(d.Format())
	if _, ok := r.decoders[key]; ok {
		panic("duplicate decoder format: " + key)
	}
	r.decoders[key] = d
}

// Get returns the decoder for format, or nil.
func (r *Registry) Get(format string) Decoder {
	return r.decoders[strings.ToLower(format)]
}

// ForFile picks a decoder by the file's extension.
func (r *Registry) ForFile(name string) (Decoder, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	d := r.Get(ext)
	if d == nil {
		return nil, fmt.Errorf("unsupported spreadsheet format %q", filepath.Ext(name))
	}
	return d, nil
}

// DefaultRegistry returns a registry with the csv and xlsx decoders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVDecoder{})
	r.Register(&XLSXDecoder{})
	return r
}

// CSVDecoder reads comma-separated exports. Rows may have differing widths.
type CSVDecoder struct{}

// Format returns the decoder name.
func (d *CSVDecoder) Format() string { return "csv" }

// Decode implements Decoder.
func (d *CSVDecoder) Decode(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return tableFromStrings(records), nil
}

// XLSXDecoder reads the first sheet of an Excel workbook.
type XLSXDecoder struct{}

// Format returns the decoder name.
func (d *XLSXDecoder) Format() string { return "xlsx" }

// Decode implements Decoder.
func (d *XLSXDecoder) Decode(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return tableFromStrings(rows), nil
}

// DecodeBytes decodes data using the decoder registered for name's extension.
func (r *Registry) DecodeBytes(name string, data []byte) (*Table, error) {
	d, err := r.ForFile(name)
	if err != nil {
		return nil, err
	}
	return d.Decode(bytes.NewReader(data))
}

func tableFromStrings(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Header = toCells(records[0])
	for _, rec := range records[1:] {
		t.Rows = append(t.Rows, toCells(rec))
	}
	return t
}

func toCells(rec []string) []any {
	cells := make([]any, len(rec))
	for i, v := range rec {
		cells[i] = v
	}
	return cells
}
