package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalRecord is the unified, intermediate representation of one
// statement row. The extractor is responsible for populating the fields
// directly from the source grid, including the final signed amount. Records
// live only for the duration of one extraction run; only persisted
// Transaction rows survive.
type CanonicalRecord struct {
	Date         time.Time           `json:"date"`
	Amount       decimal.Decimal     `json:"amount"`
	Balance      decimal.NullDecimal `json:"balance"`
	Counterparty string              `json:"counterparty"`
	Description  string              `json:"description"`
	Currency     string              `json:"currency"`
	Category     string              `json:"category,omitempty"`
	RowIndex     int                 `json:"row_index"` // physical row in the source grid, for diagnostics
}

// StatementBatch is the complete output of extracting one statement file:
// the canonical records plus the bank/account identity discovered in the
// header region and the set of canonical fields the column mapping bound.
type StatementBatch struct {
	BankCode      string            `json:"bank_code"`
	BankName      string            `json:"bank_name"`
	AccountNumber string            `json:"account_number"`
	AccountName   string            `json:"account_name"`
	Records       []CanonicalRecord `json:"records"`
	MappedFields  map[string]bool   `json:"mapped_fields"`
	DroppedRows   int               `json:"dropped_rows"` // rows discarded for bad dates/amounts
}

// HasField reports whether the column mapping bound the given canonical field.
func (b *StatementBatch) HasField(name string) bool {
	return b.MappedFields[name]
}
