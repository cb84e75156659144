package core

// ingest.go reads an uploaded file into memory and cleans it up before
// parsing:
//
//   - Enforces the configured size limit without buffering past it
//   - Removes the UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools
//   - Replaces invalid UTF-8 sequences with U+FFFD
//
// Sessions keep every raw row for re-execution, so the whole file is read
// up front rather than streamed.

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadUpload reads at most maxBytes from r. It returns ErrFileTooLarge when
// more data remains and ErrNoFile when r is empty.
func ReadUpload(r io.Reader, maxBytes int64) ([]byte, error) {
	if r == nil {
		return nil, ErrNoFile
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	return data, nil
}

// cleanText strips a leading BOM and repairs invalid UTF-8.
func cleanText(data []byte) []byte {
	return sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// ParseFile dispatches on the file extension: .xlsx goes through ParseXLSX,
// everything else is treated as CSV text.
func ParseFile(fileName string, data []byte) ([]string, []Row, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(bytes.NewReader(data))
	case ".xls":
		return nil, nil, &ParseError{Reason: "unsupported file type .xls, save as .xlsx or .csv"}
	default:
		return ParseCSV(data)
	}
}
