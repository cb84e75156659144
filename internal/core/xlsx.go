package core

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first worksheet of a workbook with the same rules as
// ParseCSV.
func ParseXLSX(r io.Reader) ([]string, []Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &ParseError{Reason: "invalid spreadsheet", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ParseError{Reason: "workbook has no sheets"}
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ParseError{Reason: "invalid spreadsheet", Err: err}
	}

	nonEmpty := 0
	for _, rec := range records {
		if !isEmptyRow(rec) {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return nil, nil, &ParseError{Reason: "file must contain a header row and at least one data row"}
	}

	return buildRows(records)
}
