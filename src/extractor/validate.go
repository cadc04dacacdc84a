package extractor

import (
	"errors"
	"fmt"

	"github.com/yuanv4/aibookkeeping/src/layouts"
	"github.com/yuanv4/aibookkeeping/src/models"
)

// Validation failures are systemic: they fail the whole batch, never a
// single row. Per-row cleanup already happened during extraction; this
// gate catches wholesale mis-mapping, e.g. the wrong column bound to
// "amount".
var (
	ErrEmptyBatch       = errors.New("no records extracted")
	ErrNoAccountNumber  = errors.New("batch carries no account number")
	ErrUnmappedRequired = errors.New("required field missing from mapped schema")
	ErrInvalidRecord    = errors.New("record violates canonical invariants")
)

// ValidateBatch runs the systemic pre-import checks over one canonical
// record set. Any error aborts the import of the whole file.
func ValidateBatch(batch *models.StatementBatch) error {
	if batch == nil || len(batch.Records) == 0 {
		return ErrEmptyBatch
	}
	for _, required := range []string{layouts.FieldDate, layouts.FieldAmount} {
		if !batch.HasField(required) {
			return fmt.Errorf("%w: %s", ErrUnmappedRequired, required)
		}
	}
	if batch.AccountNumber == "" {
		return ErrNoAccountNumber
	}

	for i, rec := range batch.Records {
		if rec.Date.IsZero() {
			return fmt.Errorf("%w: record %d has zero date (source row %d)", ErrInvalidRecord, i, rec.RowIndex)
		}
		if rec.Amount.IsZero() {
			return fmt.Errorf("%w: record %d has zero amount (source row %d)", ErrInvalidRecord, i, rec.RowIndex)
		}
		if len(rec.Currency) != 3 {
			return fmt.Errorf("%w: record %d has invalid currency %q (source row %d)", ErrInvalidRecord, i, rec.Currency, rec.RowIndex)
		}
	}
	return nil
}
