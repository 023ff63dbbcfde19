// Package rosterfile reads class lists from spreadsheet exports.
package rosterfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported roster file format")
	ErrEmpty             = errors.New("roster file is empty")
)

// ReadRows returns every row of the first sheet (XLSX) or of the CSV file.
// The format is chosen by filename extension.
// PRE: filename carries a .csv or .xlsx extension
// POST: Returns at least one row, or ErrEmpty
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return nonEmpty(rows)
}

func readXLSX(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: no worksheet found", ErrEmpty)
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return nonEmpty(rows)
}

// nonEmpty drops blank rows.
func nonEmpty(rows [][]string) ([][]string, error) {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// Header maps normalized column names to their index.
type Header map[string]int

// NewHeader indexes a header row. Names are lower-cased with spaces,
// dots, dashes and underscores removed, so "Reg. No" and "reg_no" match.
func NewHeader(row []string) Header {
	h := make(Header, len(row))
	for i, name := range row {
		h[NormalizeHeader(name)] = i
	}
	return h
}

// NormalizeHeader canonicalizes a column name.
func NormalizeHeader(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}

// Index returns the column index of the first alias present.
func (h Header) Index(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := h[NormalizeHeader(a)]; ok {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the trimmed value at idx, or "" when the row is short.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
