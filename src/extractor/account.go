package extractor

import (
	"strings"

	"github.com/yuanv4/aibookkeeping/src/layouts"
)

// Scan window for account identity. Issuer exports put the holder name and
// account number somewhere in the top-left metadata block.
const (
	accountScanRows = 15
	accountScanCols = 5
)

// ExtractAccountInfo scans the metadata block for the configured
// account-name and account-number patterns. The same probe decides whether
// an extractor can handle a file during auto-detection, so a statement
// whose identity cannot be resolved reports ok=false rather than an error.
func ExtractAccountInfo(grid Grid, layout *layouts.Layout) (name, number string, ok bool) {
	rowLimit := len(grid)
	if rowLimit > accountScanRows {
		rowLimit = accountScanRows
	}

	for row := 0; row < rowLimit; row++ {
		for col := 0; col < accountScanCols; col++ {
			cell := grid.Cell(row, col)
			if cell == "" {
				continue
			}
			if name == "" && strings.Contains(cell, layout.AccountName.Keyword) {
				if m := layout.AccountName.Capture.FindStringSubmatch(cell); len(m) > 1 {
					name = strings.TrimSpace(m[1])
				}
			}
			if number == "" && strings.Contains(cell, layout.AccountNumber.Keyword) {
				if m := layout.AccountNumber.Capture.FindStringSubmatch(cell); len(m) > 1 {
					number = strings.TrimSpace(m[1])
				}
			}
			if name != "" && number != "" {
				return name, number, true
			}
		}
	}
	if name == "" || number == "" {
		return "", "", false
	}
	return name, number, true
}
