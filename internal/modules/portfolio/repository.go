package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// Repository handles portfolio rows: identity, owner and cash balance.
// Cash is stored as decimal TEXT so balances round-trip exactly.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio for a user
func (r *Repository) Create(userID int64, name string, initialCash decimal.Decimal) (*Portfolio, error) {
	now := time.Now().Format(time.RFC3339)

	res, err := r.db.Exec(
		"INSERT INTO portfolios (user_id, name, cash_balance, created_at) VALUES (?, ?, ?, ?)",
		userID, name, initialCash.String(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio id: %w", err)
	}

	r.log.Info().Int64("portfolio_id", id).Int64("user_id", userID).Msg("Portfolio created")

	return &Portfolio{
		ID:          id,
		UserID:      userID,
		Name:        name,
		CashBalance: initialCash,
		CreatedAt:   now,
	}, nil
}

// ListByUser returns every portfolio owned by a user
func (r *Repository) ListByUser(userID int64) ([]Portfolio, error) {
	rows, err := r.db.Query(
		"SELECT id, user_id, name, cash_balance, created_at FROM portfolios WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// All returns every portfolio regardless of owner. Used by background jobs.
func (r *Repository) All() ([]Portfolio, error) {
	rows, err := r.db.Query("SELECT id, user_id, name, cash_balance, created_at FROM portfolios ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// GetOwned returns a portfolio only if it exists and belongs to the user.
// An absent or foreign portfolio is the same NotFound to the caller.
func (r *Repository) GetOwned(portfolioID, userID int64) (*Portfolio, error) {
	row := r.db.QueryRow(
		"SELECT id, user_id, name, cash_balance, created_at FROM portfolios WHERE id = ? AND user_id = ?",
		portfolioID, userID,
	)

	var p Portfolio
	var cash string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &cash, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("portfolio %d not found", portfolioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio: %w", err)
	}

	p.CashBalance, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("corrupt cash balance for portfolio %d: %w", portfolioID, err)
	}
	return &p, nil
}

// OwnerOf returns the owning user of a portfolio
func (r *Repository) OwnerOf(portfolioID int64) (int64, error) {
	var userID int64
	err := r.db.QueryRow("SELECT user_id FROM portfolios WHERE id = ?", portfolioID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFound("portfolio %d not found", portfolioID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query portfolio owner: %w", err)
	}
	return userID, nil
}

// GetCash returns the current cash balance of an owned portfolio
func (r *Repository) GetCash(portfolioID, userID int64) (decimal.Decimal, error) {
	p, err := r.GetOwned(portfolioID, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CashBalance, nil
}

// Update renames a portfolio and/or overwrites its cash balance
func (r *Repository) Update(portfolioID, userID int64, name *string, cash *decimal.Decimal) (*Portfolio, error) {
	p, err := r.GetOwned(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		p.Name = *name
	}
	if cash != nil {
		p.CashBalance = *cash
	}

	_, err = r.db.Exec(
		"UPDATE portfolios SET name = ?, cash_balance = ? WHERE id = ?",
		p.Name, p.CashBalance.String(), portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}

	r.log.Info().Int64("portfolio_id", portfolioID).Msg("Portfolio updated")
	return p, nil
}

// Delete removes a portfolio; holdings, transactions, cached statistics and
// snapshots cascade with it
func (r *Repository) Delete(portfolioID, userID int64) error {
	res, err := r.db.Exec("DELETE FROM portfolios WHERE id = ? AND user_id = ?", portfolioID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("portfolio %d not found", portfolioID)
	}

	r.log.Info().Int64("portfolio_id", portfolioID).Msg("Portfolio deleted")
	return nil
}

// GetCashTx reads the cash balance inside an open transaction
func (r *Repository) GetCashTx(tx *sql.Tx, portfolioID int64) (decimal.Decimal, error) {
	var cash string
	err := tx.QueryRow("SELECT cash_balance FROM portfolios WHERE id = ?", portfolioID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.NotFound("portfolio %d not found", portfolioID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query cash balance: %w", err)
	}

	balance, err := decimal.NewFromString(cash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt cash balance for portfolio %d: %w", portfolioID, err)
	}
	return balance, nil
}

// SetCashTx overwrites the cash balance inside an open transaction
func (r *Repository) SetCashTx(tx *sql.Tx, portfolioID int64, balance decimal.Decimal) error {
	_, err := tx.Exec("UPDATE portfolios SET cash_balance = ? WHERE id = ?", balance.String(), portfolioID)
	if err != nil {
		return fmt.Errorf("failed to update cash balance: %w", err)
	}
	return nil
}

func scanPortfolio(rows *sql.Rows) (Portfolio, error) {
	var p Portfolio
	var cash string
	if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &cash, &p.CreatedAt); err != nil {
		return p, err
	}
	balance, err := decimal.NewFromString(cash)
	if err != nil {
		return p, err
	}
	p.CashBalance = balance
	return p, nil
}
