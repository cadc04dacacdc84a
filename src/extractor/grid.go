package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Grid is the raw cell matrix of one statement file. Rows may have ragged
// lengths; Cell is the bounds-safe accessor.
type Grid [][]string

// Structural load failures. These abort the file; they are never produced
// by bad data inside an otherwise readable sheet.
var (
	ErrUnreadableFile = errors.New("statement file is not a readable spreadsheet")
	ErrEmptyFile      = errors.New("statement file is empty")
	ErrFileTooLarge   = errors.New("statement file exceeds the size ceiling")
	ErrTooManyRows    = errors.New("statement file exceeds the row ceiling")
)

// Cell returns the trimmed cell text at (row, col), or "" when out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	if col < 0 || col >= len(g[row]) {
		return ""
	}
	return strings.TrimSpace(g[row][col])
}

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int { return len(g) }

// LoadGrid reads a statement file from disk into a Grid, enforcing the
// configured size and row ceilings. The file type is sniffed from magic
// bytes, not the extension: xlsx (ZIP header) goes through excelize,
// anything text-like is treated as CSV.
func LoadGrid(path string, maxBytes int64, maxRows int) (Grid, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	var grid Grid
	switch {
	case isXLSX(data):
		grid, err = readExcelGrid(data)
	case isOLE2(data):
		// Legacy binary .xls; excelize cannot open the OLE2 container.
		return nil, fmt.Errorf("%w: legacy xls format", ErrUnreadableFile)
	case isBinaryContent(data):
		return nil, fmt.Errorf("%w: binary content", ErrUnreadableFile)
	default:
		grid, err = readCSVGrid(data)
	}
	if err != nil {
		return nil, err
	}

	if len(grid) == 0 {
		return nil, ErrEmptyFile
	}
	if maxRows > 0 && len(grid) > maxRows {
		return nil, fmt.Errorf("%w: %d rows", ErrTooManyRows, len(grid))
	}
	return grid, nil
}

func readExcelGrid(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableFile)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return Grid(rows), nil
}

func readCSVGrid(data []byte) (Grid, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // issuer exports are ragged
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var grid Grid
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// isXLSX checks for the ZIP local-file header (PK\x03\x04) that opens xlsx.
func isXLSX(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04
}

// isOLE2 checks for the OLE2 compound-document header of legacy xls.
func isOLE2(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0xD0 && data[1] == 0xCF && data[2] == 0x11 && data[3] == 0xE0
}

// isBinaryContent reports whether buf looks like binary rather than a
// text-based CSV: null bytes in the first 1KB, or invalid UTF-8 overall.
func isBinaryContent(buf []byte) bool {
	probe := buf
	if len(probe) > 1024 {
		probe = probe[:1024]
	}
	if bytes.IndexByte(probe, 0) != -1 {
		return true
	}
	return !utf8.Valid(buf)
}
