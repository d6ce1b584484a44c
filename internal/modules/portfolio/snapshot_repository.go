package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRepository stores daily portfolio valuations written by the
// snapshot job
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Upsert inserts or replaces the snapshot for one portfolio and date
func (r *SnapshotRepository) Upsert(s Snapshot) error {
	now := time.Now().Format(time.RFC3339)

	_, err := r.db.Exec(`
		INSERT INTO portfolio_snapshots
			(portfolio_id, date, total_value, cash_balance, holdings_value, position_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			total_value = excluded.total_value,
			cash_balance = excluded.cash_balance,
			holdings_value = excluded.holdings_value,
			position_count = excluded.position_count
	`, s.PortfolioID, s.Date, s.TotalValue, s.CashBalance, s.HoldingsValue, s.PositionCount, now)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	r.log.Debug().Int64("portfolio_id", s.PortfolioID).Str("date", s.Date).Msg("Snapshot upserted")
	return nil
}

// ListByPortfolio returns up to limit snapshots, most recent first
func (r *SnapshotRepository) ListByPortfolio(portfolioID int64, limit int) ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT portfolio_id, date, total_value, cash_balance, holdings_value, position_count
		FROM portfolio_snapshots
		WHERE portfolio_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.PortfolioID, &s.Date, &s.TotalValue, &s.CashBalance, &s.HoldingsValue, &s.PositionCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}
