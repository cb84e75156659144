package core

// parser.go turns raw tabular records into header-keyed rows.
//
// Rules shared by the CSV and XLSX paths:
//   - The first non-blank record is the header; header cells are trimmed
//   - Records whose cells are all blank are skipped
//   - Blank header cells become column_N, repeated headers get " (2)", " (3)"
//   - Short records are padded with empty values, extra cells are dropped

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseCSV parses comma-delimited text. Quoting is strict: a malformed quote
// run is a ParseError rather than being read leniently.
func ParseCSV(data []byte) ([]string, []Row, error) {
	data = cleanText(data)

	if countNonEmptyLines(data) < 2 {
		return nil, nil, &ParseError{Reason: "file must contain a header row and at least one data row"}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = false

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Reason: "malformed csv", Err: err}
		}
		records = append(records, rec)
	}

	return buildRows(records)
}

func countNonEmptyLines(data []byte) int {
	n := 0
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
			if n >= 2 {
				return n
			}
		}
	}
	return n
}

// buildRows converts records to a header list and header-keyed rows.
func buildRows(records [][]string) ([]string, []Row, error) {
	headerAt := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, nil, &ParseError{Reason: "no header row found"}
	}

	headers := makeHeaders(records[headerAt])

	var rows []Row
	for _, rec := range records[headerAt+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil, &EmptyDataError{Reason: "no data rows after the header"}
	}
	return headers, rows, nil
}

func makeHeaders(rec []string) []string {
	headers := make([]string, len(rec))
	seen := make(map[string]int, len(rec))
	for i, cell := range rec {
		h := CleanCell(cell)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		base := h
		seen[base]++
		if n := seen[base]; n > 1 {
			h = fmt.Sprintf("%s (%d)", base, n)
		}
		headers[i] = h
	}
	return headers
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
