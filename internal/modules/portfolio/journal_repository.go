package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// JournalRepository handles the append-only transaction journal. Records are
// never updated or deleted; every cash-affecting operation appends exactly
// one row whose signed amount matches the cash delta.
type JournalRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *sql.DB, log zerolog.Logger) *JournalRepository {
	return &JournalRepository{
		db:  db,
		log: log.With().Str("repo", "journal").Logger(),
	}
}

// AppendTx appends a journal record inside an open transaction
func (r *JournalRepository) AppendTx(tx *sql.Tx, portfolioID int64, amount decimal.Decimal, detail string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := tx.Exec(
		"INSERT INTO transactions (portfolio_id, amount, detail, created_at) VALUES (?, ?, ?, ?)",
		portfolioID, amount.String(), detail, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}
	return nil
}

// ListByPortfolio returns the journal of a portfolio, oldest first
func (r *JournalRepository) ListByPortfolio(portfolioID int64) ([]TransactionRecord, error) {
	rows, err := r.db.Query(
		"SELECT id, portfolio_id, amount, detail, created_at FROM transactions WHERE portfolio_id = ? ORDER BY id",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var records []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		var amount string
		if err := rows.Scan(&rec.ID, &rec.PortfolioID, &amount, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal record: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt journal amount for record %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}
	return records, nil
}
