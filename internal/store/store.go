// Package store caches fetched account and transaction data in a local
// sqlite database, so the CLI can show results without a fresh (TAN-guarded)
// login. Credentials and tokens are never stored.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/annettschwarze/comdirect-go/internal/comdirect"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	account_id TEXT PRIMARY KEY,
	display_id TEXT NOT NULL,
	currency TEXT NOT NULL,
	type_key TEXT NOT NULL,
	type_text TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reference TEXT,
	account_id TEXT NOT NULL,
	booking_date TEXT NOT NULL,
	valuta_date TEXT NOT NULL,
	amount_value TEXT NOT NULL,
	amount_unit TEXT NOT NULL,
	holder_name TEXT NOT NULL,
	remittance_info TEXT NOT NULL,
	type_key TEXT NOT NULL,
	type_text TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	UNIQUE(reference)
);
`

// Store is a handle to the cache database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the cache at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAccounts swaps the cached account list for the given one.
func (s *Store) ReplaceAccounts(accounts []comdirect.Account) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM accounts"); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	now := time.Now().Unix()
	for _, a := range accounts {
		_, err := tx.Exec(
			"INSERT INTO accounts (account_id, display_id, currency, type_key, type_text, fetched_at) VALUES (?, ?, ?, ?, ?, ?)",
			a.AccountID, a.DisplayID, a.Currency, a.AccountTypeKey, a.AccountTypeText, now,
		)
		if err != nil {
			return fmt.Errorf("insert account %s: %w", a.AccountID, err)
		}
	}
	return tx.Commit()
}

// ListAccounts returns the cached account list.
func (s *Store) ListAccounts() ([]comdirect.Account, error) {
	rows, err := s.db.Query(
		"SELECT account_id, display_id, currency, type_key, type_text FROM accounts ORDER BY display_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []comdirect.Account
	for rows.Next() {
		var a comdirect.Account
		if err := rows.Scan(&a.AccountID, &a.DisplayID, &a.Currency, &a.AccountTypeKey, &a.AccountTypeText); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SaveTransactions inserts new transactions into the cache. Lines already
// present (same non-empty reference) are skipped; the number of newly stored
// lines is returned.
func (s *Store) SaveTransactions(txs []comdirect.AccountTransaction) (int, error) {
	dbtx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	now := time.Now().Unix()
	inserted := 0
	for _, t := range txs {
		// NULL references never collide, so lines without a reference are
		// always kept.
		var ref any
		if t.Reference != "" {
			ref = t.Reference
		}
		res, err := dbtx.Exec(
			`INSERT OR IGNORE INTO transactions
			(reference, account_id, booking_date, valuta_date, amount_value, amount_unit, holder_name, remittance_info, type_key, type_text, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ref, t.AccountID, t.BookingDate, t.ValutaDate, t.AmountValue, t.AmountUnit,
			t.HolderName, t.RemittanceInfo, t.TransactionTypeKey, t.TransactionTypeText, now,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert transaction %q: %w", t.Reference, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListTransactions returns cached transactions, newest booking date first.
// An empty accountID selects all accounts.
func (s *Store) ListTransactions(accountID string) ([]comdirect.AccountTransaction, error) {
	query := `SELECT COALESCE(reference, ''), account_id, booking_date, valuta_date, amount_value, amount_unit, holder_name, remittance_info, type_key, type_text
		FROM transactions`
	args := []any{}
	if accountID != "" {
		query += " WHERE account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY booking_date DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []comdirect.AccountTransaction
	for rows.Next() {
		var t comdirect.AccountTransaction
		err := rows.Scan(&t.Reference, &t.AccountID, &t.BookingDate, &t.ValutaDate, &t.AmountValue,
			&t.AmountUnit, &t.HolderName, &t.RemittanceInfo, &t.TransactionTypeKey, &t.TransactionTypeText)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
