package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile loads raw rows from an .xlsx, .csv or .json file.
func ReadFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Read(f, Format(path))
}

// Format maps a file name to a reader format: xlsx, csv or json.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx":
		return "xlsx"
	case ".csv":
		return "csv"
	default:
		return "json"
	}
}

func Read(r io.Reader, format string) ([]map[string]any, error) {
	switch format {
	case "xlsx":
		return ReadXLSX(r)
	case "csv":
		return ReadCSV(r)
	case "json":
		return ReadJSON(r)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

// ReadXLSX reads the first sheet. The first row is the header; cells come
// back unformatted, so date cells arrive as serial numbers.
func ReadXLSX(r io.Reader) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return tabular(rows), nil
}

func ReadCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return tabular(records), nil
}

// ReadJSON accepts an array of objects, or an object with a "tasks" array
// as written by export.
func ReadJSON(r io.Reader) ([]map[string]any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	b = bytes.TrimSpace(b)

	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Tasks []map[string]any `json:"tasks"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
		return wrapped.Tasks, nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	return rows, nil
}

// tabular keys each record by the header row. Fully blank records are
// dropped; short records leave trailing columns unset.
func tabular(records [][]string) []map[string]any {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	out := make([]map[string]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		blank := true
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
			row[header[i]] = cell
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
