package extractor

import (
	"errors"
	"strings"

	"github.com/yuanv4/aibookkeeping/src/layouts"
)

// ErrNoHeaderRow means no row in the scan window reached the layout's
// keyword threshold. The caller treats this as a hard per-file failure.
var ErrNoHeaderRow = errors.New("no header row found")

// headerScanRows bounds the header search; issuer exports prepend a
// variable number of metadata rows before the real field-label row.
const headerScanRows = 25

// FindHeaderRow scans the top of the grid for the field-label row: for each
// candidate row it concatenates all non-empty cells and counts configured
// header keywords (case-insensitive). The earliest row reaching the layout's
// threshold wins.
func FindHeaderRow(grid Grid, layout *layouts.Layout) (int, error) {
	limit := len(grid)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	minHits := layout.MinHeaderHits
	if minHits < 1 {
		minHits = 1
	}

	for row := 0; row < limit; row++ {
		joined := strings.ToLower(strings.Join(grid[row], " "))
		if joined == "" {
			continue
		}
		hits := 0
		for _, kw := range layout.HeaderKeywords {
			if strings.Contains(joined, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits >= minHits {
			return row, nil
		}
	}
	return -1, ErrNoHeaderRow
}
