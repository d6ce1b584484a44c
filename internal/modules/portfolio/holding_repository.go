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

// HoldingRepository handles the per-portfolio holdings ledger. Mutations run
// inside the caller's transaction so the holding, cash and journal commit as
// one unit.
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holdings repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// ListByPortfolio returns every holding of a portfolio
func (r *HoldingRepository) ListByPortfolio(portfolioID int64) ([]Holding, error) {
	rows, err := r.db.Query(
		"SELECT id, portfolio_id, symbol, shares, avg_price, created_at, updated_at FROM holdings WHERE portfolio_id = ? ORDER BY symbol",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// Symbols returns the symbols currently held by a portfolio
func (r *HoldingRepository) Symbols(portfolioID int64) ([]string, error) {
	rows, err := r.db.Query(
		"SELECT symbol FROM holdings WHERE portfolio_id = ? ORDER BY symbol",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query held symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return symbols, nil
}

// GetTx reads one holding inside an open transaction. Returns NotFound when
// the portfolio has no position in the symbol.
func (r *HoldingRepository) GetTx(tx *sql.Tx, portfolioID int64, symbol string) (*Holding, error) {
	row := tx.QueryRow(
		"SELECT id, portfolio_id, symbol, shares, avg_price, created_at, updated_at FROM holdings WHERE portfolio_id = ? AND symbol = ?",
		portfolioID, symbol,
	)

	var h Holding
	var avg string
	err := row.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &avg, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no holding in %s for portfolio %d", symbol, portfolioID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}

	h.AvgPrice, err = decimal.NewFromString(avg)
	if err != nil {
		return nil, fmt.Errorf("corrupt average price for holding %d: %w", h.ID, err)
	}
	return &h, nil
}

// CreateTx inserts a new holding inside an open transaction
func (r *HoldingRepository) CreateTx(tx *sql.Tx, portfolioID int64, symbol string, shares int64, avgPrice decimal.Decimal) error {
	now := time.Now().Format(time.RFC3339)
	_, err := tx.Exec(
		"INSERT INTO holdings (portfolio_id, symbol, shares, avg_price, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		portfolioID, symbol, shares, avgPrice.String(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	return nil
}

// UpdateTx overwrites shares and average price inside an open transaction
func (r *HoldingRepository) UpdateTx(tx *sql.Tx, holdingID, shares int64, avgPrice decimal.Decimal) error {
	now := time.Now().Format(time.RFC3339)
	_, err := tx.Exec(
		"UPDATE holdings SET shares = ?, avg_price = ?, updated_at = ? WHERE id = ?",
		shares, avgPrice.String(), now, holdingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return nil
}

// UpdateSharesTx changes the share count only; average price never moves on a
// sell
func (r *HoldingRepository) UpdateSharesTx(tx *sql.Tx, holdingID, shares int64) error {
	now := time.Now().Format(time.RFC3339)
	_, err := tx.Exec(
		"UPDATE holdings SET shares = ?, updated_at = ? WHERE id = ?",
		shares, now, holdingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding shares: %w", err)
	}
	return nil
}

// DeleteTx removes a holding inside an open transaction. A holding never
// persists at zero shares.
func (r *HoldingRepository) DeleteTx(tx *sql.Tx, holdingID int64) error {
	_, err := tx.Exec("DELETE FROM holdings WHERE id = ?", holdingID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

func scanHolding(rows *sql.Rows) (Holding, error) {
	var h Holding
	var avg string
	if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &avg, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return h, err
	}
	price, err := decimal.NewFromString(avg)
	if err != nil {
		return h, err
	}
	h.AvgPrice = price
	return h, nil
}
