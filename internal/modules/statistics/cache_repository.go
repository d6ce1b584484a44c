package statistics

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CacheRepository persists computed statistics keyed by the exact request
// parameters. A lookup with a different date range never matches.
type CacheRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCacheRepository creates a statistics cache repository.
func NewCacheRepository(db *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		db:  db,
		log: log.With().Str("component", "statistics_cache").Logger(),
	}
}

// Get looks up a cached entry for one symbol. The second return value reports
// whether the entry exists; a stored NULL figure comes back as a nil pointer.
func (r *CacheRepository) Get(portfolioID int64, symbol, startDate, endDate string) (*CacheEntry, bool, error) {
	query := `
		SELECT cov, beta FROM statistics_cache
		WHERE portfolio_id = ? AND symbol = ? AND start_date = ? AND end_date = ?`

	entry := &CacheEntry{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	var cov, beta sql.NullFloat64
	err := r.db.QueryRow(query, portfolioID, symbol, startDate, endDate).Scan(&cov, &beta)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying statistics cache: %w", err)
	}
	if cov.Valid {
		entry.COV = &cov.Float64
	}
	if beta.Valid {
		entry.Beta = &beta.Float64
	}
	return entry, true, nil
}

// Upsert stores an entry, overwriting any previous result for the same key.
func (r *CacheRepository) Upsert(entry *CacheEntry) error {
	query := `
		INSERT INTO statistics_cache (portfolio_id, symbol, start_date, end_date, cov, beta, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, start_date, end_date, symbol)
		DO UPDATE SET cov = excluded.cov, beta = excluded.beta, updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		entry.PortfolioID, entry.Symbol, entry.StartDate, entry.EndDate,
		nullable(entry.COV), nullable(entry.Beta), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting statistics cache: %w", err)
	}
	return nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
