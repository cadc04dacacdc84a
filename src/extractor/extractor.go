// Package extractor turns raw statement grids into canonical record
// batches. One fixed algorithm serves every issuer; the differences live
// entirely in the layout configuration.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuanv4/aibookkeeping/src/layouts"
	"github.com/yuanv4/aibookkeeping/src/logger"
	"github.com/yuanv4/aibookkeeping/src/models"
	"github.com/yuanv4/aibookkeeping/src/security/validation"
)

// Structural extraction failures. Any of these aborts the file with no
// partial output; per-row data problems are counted drops instead.
var (
	ErrNoAccountInfo         = errors.New("account identity not found in statement header")
	ErrMissingRequiredColumn = errors.New("required column not present in mapped schema")
)

// canonicalFieldOrder fixes the scan order of the column-rename mapping:
// for each raw label the first canonical field with a matching variant wins.
var canonicalFieldOrder = []string{
	layouts.FieldDate,
	layouts.FieldAmount,
	layouts.FieldBalance,
	layouts.FieldCounterparty,
	layouts.FieldDescription,
	layouts.FieldCurrency,
	layouts.FieldCategory,
}

// ctxCheckInterval is how many data rows are processed between context
// deadline checks.
const ctxCheckInterval = 256

// Extractor extracts canonical records for a single issuer layout.
type Extractor struct {
	layout layouts.Layout
}

// New creates an extractor parameterized by the given layout.
func New(layout layouts.Layout) *Extractor {
	return &Extractor{layout: layout}
}

// Code returns the issuer code of the underlying layout.
func (e *Extractor) Code() string { return e.layout.BankCode }

// Name returns the issuer display name of the underlying layout.
func (e *Extractor) Name() string { return e.layout.BankName }

// Probe reports whether this extractor can handle the grid: the account
// identity scan must resolve both holder name and account number.
func (e *Extractor) Probe(grid Grid) bool {
	_, _, ok := ExtractAccountInfo(grid, &e.layout)
	return ok
}

// Extract runs the full template method over grid and returns a canonical
// batch. An empty batch with a populated identity is a valid result ("no
// data" is not an error); only structurally unreadable input fails.
func (e *Extractor) Extract(ctx context.Context, grid Grid) (*models.StatementBatch, error) {
	headerRow, err := FindHeaderRow(grid, &e.layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.layout.BankCode, err)
	}

	accountName, accountNumber, ok := ExtractAccountInfo(grid, &e.layout)
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.layout.BankCode, ErrNoAccountInfo)
	}

	labels, dataStart := e.headerLabels(grid, headerRow)
	fieldCol := e.mapColumns(labels)

	for _, required := range []string{layouts.FieldDate, layouts.FieldAmount} {
		if _, mapped := fieldCol[required]; !mapped {
			return nil, fmt.Errorf("%s: %w: %s", e.layout.BankCode, ErrMissingRequiredColumn, required)
		}
	}

	batch := &models.StatementBatch{
		BankCode:      e.layout.BankCode,
		BankName:      e.layout.BankName,
		AccountNumber: accountNumber,
		AccountName:   validation.CleanCell(accountName),
		MappedFields:  make(map[string]bool, len(fieldCol)),
	}
	for field := range fieldCol {
		batch.MappedFields[field] = true
	}

	structural := e.layout.StructuralLabels()
	dateCol := fieldCol[layouts.FieldDate]
	dateLabel := labels[dateCol]
	now := time.Now()

	for row := dataStart; row < len(grid); row++ {
		if (row-dataStart)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: extraction canceled: %w", e.layout.BankCode, err)
			}
		}

		dateCell := grid.Cell(row, dateCol)
		if dateCell == "" || dateCell == dateLabel {
			// Null date or a duplicated header row inside the data region.
			continue
		}

		date, err := parseDate(dateCell)
		if err != nil {
			batch.DroppedRows++
			logger.L.Debug("Dropping row with unparseable date", "bank", e.layout.BankCode, "row", row, "value", dateCell)
			continue
		}
		if date.After(now) {
			batch.DroppedRows++
			logger.L.Warn("Dropping row with future date", "bank", e.layout.BankCode, "row", row, "date", date.Format("2006-01-02"))
			continue
		}

		amount, numOK := parseAmount(grid.Cell(row, fieldCol[layouts.FieldAmount]))
		if !numOK {
			batch.DroppedRows++
			logger.L.Debug("Dropping row with non-numeric amount", "bank", e.layout.BankCode, "row", row)
			continue
		}
		if amount.IsZero() {
			batch.DroppedRows++
			continue
		}

		rec := models.CanonicalRecord{
			Date:     date,
			Amount:   amount,
			RowIndex: row,
		}

		if col, mapped := fieldCol[layouts.FieldBalance]; mapped {
			if bal, balOK := parseAmount(grid.Cell(row, col)); balOK {
				rec.Balance.Decimal = bal
				rec.Balance.Valid = true
			}
		}
		if col, mapped := fieldCol[layouts.FieldCounterparty]; mapped {
			rec.Counterparty = validation.CleanCell(grid.Cell(row, col))
		}
		if col, mapped := fieldCol[layouts.FieldDescription]; mapped {
			rec.Description = validation.CleanCell(grid.Cell(row, col))
		}
		if isStructuralArtifact(rec.Counterparty, structural) || isStructuralArtifact(rec.Description, structural) {
			continue
		}

		if col, mapped := fieldCol[layouts.FieldCurrency]; mapped {
			code, fellBack := normalizeCurrency(grid.Cell(row, col), &e.layout)
			if fellBack {
				logger.L.Warn("Unrecognized currency label, using issuer default",
					"bank", e.layout.BankCode, "row", row, "value", grid.Cell(row, col), "default", e.layout.DefaultCurrency)
			}
			rec.Currency = code
		} else {
			rec.Currency = e.layout.DefaultCurrency
		}

		if col, mapped := fieldCol[layouts.FieldCategory]; mapped {
			rec.Category = validation.CleanCell(grid.Cell(row, col))
		}

		batch.Records = append(batch.Records, rec)
	}

	if batch.DroppedRows > 0 {
		logger.L.Info("Dropped rows during extraction",
			"bank", e.layout.BankCode, "dropped", batch.DroppedRows, "kept", len(batch.Records))
	}
	return batch, nil
}

// headerLabels returns the per-column labels starting at headerRow and the
// first data row index. With the multi-row header flag the label row and
// the following physical row are joined per column.
func (e *Extractor) headerLabels(grid Grid, headerRow int) ([]string, int) {
	width := len(grid[headerRow])
	dataStart := headerRow + 1
	if e.layout.MultiRowHeader && headerRow+1 < len(grid) {
		if len(grid[headerRow+1]) > width {
			width = len(grid[headerRow+1])
		}
		dataStart = headerRow + 2
	}

	labels := make([]string, width)
	for col := 0; col < width; col++ {
		label := grid.Cell(headerRow, col)
		if e.layout.MultiRowHeader {
			label += grid.Cell(headerRow+1, col)
		}
		labels[col] = strings.TrimSpace(label)
	}
	return labels, dataStart
}

// mapColumns builds the column-rename map: for each raw label, scanned
// left-to-right, the first canonical field with a variant contained in the
// label claims the column. A field keeps its first claimed column.
func (e *Extractor) mapColumns(labels []string) map[string]int {
	fieldCol := make(map[string]int)
	for col, label := range labels {
		if label == "" {
			continue
		}
		for _, field := range canonicalFieldOrder {
			if _, taken := fieldCol[field]; taken {
				continue
			}
			if labelMatches(label, e.layout.FieldLabels[field]) {
				fieldCol[field] = col
				break
			}
		}
	}
	return fieldCol
}

func labelMatches(label string, variants []string) bool {
	for _, v := range variants {
		if v != "" && strings.Contains(label, v) {
			return true
		}
	}
	return false
}

// isStructuralArtifact reports whether a free-text value is actually a
// leaked header label (issuer exports sometimes repeat header fragments in
// the data region).
func isStructuralArtifact(value string, structural []string) bool {
	if value == "" {
		return false
	}
	for _, label := range structural {
		if value == label {
			return true
		}
	}
	return false
}
