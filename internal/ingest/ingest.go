// Package ingest parses bulk company-name lists from CSV and XLSX files.
// It produces only the ordered list of names to enqueue; everything else in
// the source file is ignored.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// nameHeaders are recognized header labels for the company-name column.
var nameHeaders = map[string]bool{
	"name":         true,
	"company":      true,
	"company name": true,
	"supplier":     true,
}

// ReadNames parses the file at path by extension and returns the trimmed,
// deduplicated company names in submission order.
func ReadNames(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadNamesCSV(f)
	case ".xlsx":
		return ReadNamesXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadNamesCSV reads company names from the first column. A recognized
// header row is skipped; otherwise the first row counts as data.
func ReadNamesCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv")
		}
		rows = append(rows, record)
	}
	return namesFromRows(rows), nil
}

// ReadNamesXLSX reads company names from the first column of the first sheet.
func ReadNamesXLSX(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return namesFromRows(rows), nil
}

func namesFromRows(rows [][]string) []string {
	var names []string
	seen := make(map[string]bool)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		if i == 0 && nameHeaders[strings.ToLower(name)] {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
