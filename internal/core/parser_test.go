package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	t.Run("quoted fields and escaped quotes", func(t *testing.T) {
		data := "Date, Amount ,Payee\n2024-01-05,\"1,250.00\",\"Joe \"\"The Plumber\"\"\"\n"

		headers, rows, err := ParseCSV([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Amount", "Payee"}, headers)
		require.Len(t, rows, 1)
		assert.Equal(t, "1,250.00", rows[0]["Amount"])
		assert.Equal(t, `Joe "The Plumber"`, rows[0]["Payee"])
	})

	t.Run("blank lines and blank rows are skipped", func(t *testing.T) {
		data := "\n\nName,Type\n\nFood,Expense\n,\n   \nSalary,Income\n\n"

		headers, rows, err := ParseCSV([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"Name", "Type"}, headers)
		require.Len(t, rows, 2)
		assert.Equal(t, "Food", rows[0]["Name"])
		assert.Equal(t, "Salary", rows[1]["Name"])
	})

	t.Run("crlf line endings and BOM", func(t *testing.T) {
		data := "\xEF\xBB\xBFName,Type\r\nFood,Expense\r\n"

		headers, rows, err := ParseCSV([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"Name", "Type"}, headers)
		assert.Equal(t, "Expense", rows[0]["Type"])
	})

	t.Run("short rows are padded and long rows truncated", func(t *testing.T) {
		data := "A,B,C\n1\n1,2,3,4\n"

		_, rows, err := ParseCSV([]byte(data))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, Row{"A": "1", "B": "", "C": ""}, rows[0])
		assert.Equal(t, Row{"A": "1", "B": "2", "C": "3"}, rows[1])
	})

	t.Run("blank and duplicate headers", func(t *testing.T) {
		data := "Amount,,Amount\n1,2,3\n"

		headers, rows, err := ParseCSV([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"Amount", "column_2", "Amount (2)"}, headers)
		assert.Equal(t, "3", rows[0]["Amount (2)"])
	})

	t.Run("invalid utf8 is replaced", func(t *testing.T) {
		data := []byte("Name,Type\nCaf\xe9,Expense\n")

		_, rows, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Equal(t, "Caf\uFFFD", rows[0]["Name"])
	})
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantParse bool
		wantEmpty bool
	}{
		{name: "empty input", data: "", wantParse: true},
		{name: "header only", data: "Date,Amount,Payee\n", wantParse: true},
		{name: "header and blank lines", data: "Date,Amount\n\n   \n", wantParse: true},
		{name: "unterminated quote", data: "Date,Payee\n2024-01-05,\"Coffee Shop\n", wantParse: true},
		{name: "bare quote in field", data: "Date,Payee\n2024-01-05,Joe \"The\" Plumber\n", wantParse: true},
		{name: "text after closing quote", data: "Date,Payee\n2024-01-05,\"Joe\"x\n", wantParse: true},
		{name: "only blank cells after header", data: "Date,Amount\n,\n", wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCSV([]byte(tt.data))
			require.Error(t, err)

			var pe *ParseError
			var ee *EmptyDataError
			assert.Equal(t, tt.wantParse, errors.As(err, &pe), "ParseError: %v", err)
			assert.Equal(t, tt.wantEmpty, errors.As(err, &ee), "EmptyDataError: %v", err)
			assert.True(t, IsFileError(err))
		})
	}
}

func TestParseFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Amount", "Payee", "Account"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2024-01-05", "-42.50", "Coffee Shop", "Checking"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"2024-01-06", "100", "Employer", "Checking"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	headers, rows, err := ParseFile("statement.XLSX", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount", "Payee", "Account"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "Coffee Shop", rows[0]["Payee"])
	assert.Equal(t, "Employer", rows[1]["Payee"])
}

func TestParseFile_Dispatch(t *testing.T) {
	t.Run("csv by default", func(t *testing.T) {
		_, rows, err := ParseFile("data.txt", []byte("Name,Type\nFood,Expense\n"))
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("legacy xls rejected", func(t *testing.T) {
		_, _, err := ParseFile("old.xls", []byte("whatever"))
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Contains(t, err.Error(), "unsupported file type")
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		_, _, err := ParseFile("broken.xlsx", []byte("not a zip"))
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
	})
}

func TestReadUpload(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		data, err := ReadUpload(strings.NewReader("abc"), 3)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), data)
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadUpload(strings.NewReader("abcd"), 3)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("no limit", func(t *testing.T) {
		data, err := ReadUpload(bytes.NewReader(make([]byte, 1<<16)), 0)
		require.NoError(t, err)
		assert.Len(t, data, 1<<16)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadUpload(strings.NewReader(""), 10)
		assert.ErrorIs(t, err, ErrNoFile)
	})
}
