// Package importer persists validated canonical batches with referential
// integrity across bank/account/category rows. Each file's batch runs in
// one database transaction; nothing here touches the filesystem.
package importer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yuanv4/aibookkeeping/src/logger"
	"github.com/yuanv4/aibookkeeping/src/models"
)

// Importer writes canonical batches into the relational schema.
type Importer struct {
	db *sql.DB
}

// New creates an Importer on top of an open database handle.
func New(db *sql.DB) *Importer {
	return &Importer{db: db}
}

// Result summarizes one file's import for the orchestrator.
type Result struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Imported      int    `json:"imported"`
	Duplicates    int    `json:"duplicates"`
	Failed        int    `json:"failed"`
}

// ImportBatch persists one validated batch inside a single transaction.
// The owning bank and account are upserted once per batch via atomic
// ON CONFLICT upserts (never check-then-insert, so concurrent imports of
// different files cannot race a duplicate identity row). A failure to
// resolve bank or account rolls back the whole file; a single bad row is
// logged and skipped without aborting the rest.
func (im *Importer) ImportBatch(ctx context.Context, batch *models.StatementBatch) (*Result, error) {
	dbTx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer dbTx.Rollback()

	accountCurrency := batch.Records[0].Currency

	bankID, err := upsertBank(ctx, dbTx, batch.BankCode, batch.BankName)
	if err != nil {
		return nil, fmt.Errorf("resolving bank %s: %w", batch.BankCode, err)
	}
	accountID, err := upsertAccount(ctx, dbTx, bankID, batch.AccountNumber, batch.AccountName, accountCurrency)
	if err != nil {
		return nil, fmt.Errorf("resolving account %s: %w", batch.AccountNumber, err)
	}

	result := &Result{
		BankCode:      batch.BankCode,
		BankName:      batch.BankName,
		AccountNumber: batch.AccountNumber,
		AccountName:   batch.AccountName,
	}

	categoryIDs := make(map[string]int64)

	for _, rec := range batch.Records {
		var categoryID int64
		if rec.Category != "" {
			categoryID, err = resolveCategory(ctx, dbTx, categoryIDs, rec.Category, rec.Amount.IsPositive())
			if err != nil {
				logger.L.Error("Failed to resolve category, skipping record",
					"category", rec.Category, "row", rec.RowIndex, "error", err)
				result.Failed++
				continue
			}
		}

		exists, err := recordExists(ctx, dbTx, accountID, categoryID, rec)
		if err != nil {
			logger.L.Error("Duplicate check failed, skipping record", "row", rec.RowIndex, "error", err)
			result.Failed++
			continue
		}
		if exists {
			result.Duplicates++
			continue
		}

		if err := insertRecord(ctx, dbTx, accountID, categoryID, rec); err != nil {
			logger.L.Error("Failed to insert record", "row", rec.RowIndex, "error", err)
			result.Failed++
			continue
		}
		result.Imported++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import transaction: %w", err)
	}
	return result, nil
}

func upsertBank(ctx context.Context, tx *sql.Tx, code, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO banks (code, name) VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name
		RETURNING id`,
		code, name,
	).Scan(&id)
	return id, err
}

func upsertAccount(ctx context.Context, tx *sql.Tx, bankID int64, number, name, currency string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (bank_id, number, name, currency) VALUES (?, ?, ?, ?)
		ON CONFLICT (bank_id, number) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE accounts.name END
		RETURNING id`,
		bankID, number, name, currency,
	).Scan(&id)
	return id, err
}

func resolveCategory(ctx context.Context, tx *sql.Tx, cache map[string]int64, name string, isIncome bool) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO categories (name, is_income) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`,
		name, isIncome,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	cache[name] = id
	return id, nil
}

// recordExists applies the graduated dedup key. The fixed prefix is
// (account, date, amount). Balance participates with NULL sensitivity: a
// record that reports no balance only matches stored rows that also have
// none, so a balance-less record can import alongside a balanced twin.
// Category and counterparty sharpen the match only when the incoming
// record carries them.
func recordExists(ctx context.Context, tx *sql.Tx, accountID, categoryID int64, rec models.CanonicalRecord) (bool, error) {
	query := `SELECT COUNT(1) FROM transactions WHERE account_id = ? AND date = ? AND amount = ?`
	args := []any{accountID, rec.Date.Format("2006-01-02"), rec.Amount}

	if rec.Balance.Valid {
		query += ` AND balance = ?`
		args = append(args, rec.Balance.Decimal)
	} else {
		query += ` AND balance IS NULL`
	}
	if categoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if rec.Counterparty != "" {
		query += ` AND counterparty = ?`
		args = append(args, rec.Counterparty)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, accountID, categoryID int64, rec models.CanonicalRecord) error {
	var category any
	if categoryID != 0 {
		category = categoryID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
			(account_id, date, amount, balance, counterparty, description, currency, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID,
		rec.Date.Format("2006-01-02"),
		rec.Amount,
		rec.Balance,
		rec.Counterparty,
		rec.Description,
		rec.Currency,
		category,
	)
	return err
}
