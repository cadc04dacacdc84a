package importer

import (
	"context"
	"fmt"

	"github.com/yuanv4/aibookkeeping/src/models"
)

// Read-side queries over the imported store. The pipeline itself never
// needs these; they serve the post-scan overview and external collaborators
// inspecting what a run produced.

// Banks returns every known issuing institution ordered by code.
func (im *Importer) Banks(ctx context.Context) ([]models.Bank, error) {
	rows, err := im.db.QueryContext(ctx, `SELECT id, code, name FROM banks ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("querying banks: %w", err)
	}
	defer rows.Close()

	var banks []models.Bank
	for rows.Next() {
		var b models.Bank
		if err := rows.Scan(&b.ID, &b.Code, &b.Name); err != nil {
			return nil, fmt.Errorf("scanning bank row: %w", err)
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// Accounts returns every account discovered across imported statements.
func (im *Importer) Accounts(ctx context.Context) ([]models.Account, error) {
	rows, err := im.db.QueryContext(ctx, `SELECT id, bank_id, number, name, currency FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.BankID, &a.Number, &a.Name, &a.Currency); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Categories returns the categories created by imported statements.
func (im *Importer) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := im.db.QueryContext(ctx, `SELECT id, name, is_income FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsIncome); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AccountTransactions returns the most recent transactions of one account,
// newest first. limit <= 0 means no limit.
func (im *Importer) AccountTransactions(ctx context.Context, accountID int64, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, date, amount, balance, counterparty, description, currency, COALESCE(category_id, 0)
		FROM transactions
		WHERE account_id = ?
		ORDER BY date DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := im.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Date, &tx.Amount, &tx.Balance,
			&tx.Counterparty, &tx.Description, &tx.Currency, &tx.CategoryID); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
