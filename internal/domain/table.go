package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CityColumn is the header that holds the city display name.
const CityColumn = "CITY"

const utf8BOM = "\ufeff"

// Table is a parsed CSV: one header row and the data rows beneath it.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseCSV reads a header row followed by data rows. Rows may be shorter or
// longer than the header; cells past the header are ignored and missing cells
// read as empty.
func ParseCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, errors.New("parse csv: empty input")
	}
	if err != nil {
		return Table{}, fmt.Errorf("parse csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv rows: %w", err)
	}
	return Table{Header: header, Rows: rows}, nil
}

// TableFromCities builds a single-column CITY table.
func TableFromCities(cities []string) Table {
	rows := make([][]string, len(cities))
	for i, c := range cities {
		rows[i] = []string{c}
	}
	return Table{Header: []string{CityColumn}, Rows: rows}
}

// ColumnIndex returns the position of an exact header match, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns every cell of the named column in row order.
func (t Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, &MissingColumnError{Column: name, Available: append([]string(nil), t.Header...)}
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// UniqueCities extracts the CITY column, dropping repeats and empty cells
// while keeping first-seen order. Names are compared verbatim, so "Irvine"
// and "irvine " are distinct.
func UniqueCities(t Table) ([]string, error) {
	values, err := t.Column(CityColumn)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(values))
	cities := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cities = append(cities, v)
	}
	return cities, nil
}
