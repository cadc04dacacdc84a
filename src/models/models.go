package models

import "github.com/shopspring/decimal"

// Bank is an issuing institution. Code is the short identifier used by
// layout configurations (e.g. "CMB"), unique across the table.
type Bank struct {
	ID   int64  `json:"id,omitempty"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Account is one bank account discovered in a statement header.
// (BankID, Number) is unique.
type Account struct {
	ID       int64  `json:"id,omitempty"`
	BankID   int64  `json:"bank_id"`
	Number   string `json:"number"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Category classifies a transaction by name; IsIncome marks income categories.
type Category struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	IsIncome bool   `json:"is_income"`
}

// Transaction is a persisted canonical transaction row. Amount is signed:
// income positive, expense negative. Balance is the account balance after
// the transaction when the statement reported one.
type Transaction struct {
	ID           int64               `json:"id,omitempty"`
	AccountID    int64               `json:"account_id"`
	Date         string              `json:"date"` // YYYY-MM-DD
	Amount       decimal.Decimal     `json:"amount"`
	Balance      decimal.NullDecimal `json:"balance"`
	Counterparty string              `json:"counterparty"`
	Description  string              `json:"description"`
	Currency     string              `json:"currency"`
	CategoryID   int64               `json:"category_id,omitempty"`
}
