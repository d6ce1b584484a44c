package market

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// Repository provides read and correction access to the historical price
// series and the recognized-symbols registry. Bars are immutable once
// recorded; updates are explicit corrections outside the trading flow.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market data repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "market").Logger(),
	}
}

// IsKnownSymbol checks the recognized-symbols registry
func (r *Repository) IsKnownSymbol(symbol string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM stock_symbols WHERE symbol = ?", normalize(symbol)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check symbol registry: %w", err)
	}
	return true, nil
}

// Symbols returns every recognized symbol in order
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query("SELECT symbol FROM stock_symbols ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
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

// LatestClose returns the most recent recorded close for a symbol
func (r *Repository) LatestClose(symbol string) (float64, error) {
	var close float64
	err := r.db.QueryRow(
		"SELECT close FROM stocks WHERE symbol = ? ORDER BY date DESC LIMIT 1",
		normalize(symbol),
	).Scan(&close)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFound("no price data for symbol %s", symbol)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest close: %w", err)
	}
	return close, nil
}

// LatestBar returns the most recent bar for a symbol
func (r *Repository) LatestBar(symbol string) (*PriceBar, error) {
	row := r.db.QueryRow(
		"SELECT id, symbol, date, open, high, low, close, volume FROM stocks WHERE symbol = ? ORDER BY date DESC LIMIT 1",
		normalize(symbol),
	)
	bar, err := scanBar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no price data for symbol %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest bar: %w", err)
	}
	return &bar, nil
}

// BarOn returns the bar for a symbol on a specific date
func (r *Repository) BarOn(symbol, date string) (*PriceBar, error) {
	row := r.db.QueryRow(
		"SELECT id, symbol, date, open, high, low, close, volume FROM stocks WHERE symbol = ? AND date = ?",
		normalize(symbol), date,
	)
	bar, err := scanBar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no price data for %s on %s", symbol, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bar: %w", err)
	}
	return &bar, nil
}

// Bars returns up to limit bars for a symbol, newest first unless asc is set
func (r *Repository) Bars(symbol string, limit int, asc bool) ([]PriceBar, error) {
	order := "DESC"
	if asc {
		order = "ASC"
	}
	query := fmt.Sprintf(
		"SELECT id, symbol, date, open, high, low, close, volume FROM stocks WHERE symbol = ? ORDER BY date %s LIMIT ?",
		order,
	)

	rows, err := r.db.Query(query, normalize(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []PriceBar
	for rows.Next() {
		bar, err := scanBarFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}
	return bars, nil
}

// ClosesInRange returns the ordered (date, close) series for a symbol in
// [start, end], oldest first
func (r *Repository) ClosesInRange(symbol, start, end string) ([]DatedClose, error) {
	rows, err := r.db.Query(
		"SELECT date, close FROM stocks WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date ASC",
		normalize(symbol), start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query closes in range: %w", err)
	}
	defer rows.Close()

	var closes []DatedClose
	for rows.Next() {
		var c DatedClose
		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}
	return closes, nil
}

// ClosesInRangeAll returns the ordered close series of every symbol with data
// in [start, end]. Used for the market-return series, which spans all symbols
// with data, not just one portfolio's holdings.
func (r *Repository) ClosesInRangeAll(start, end string) (map[string][]DatedClose, error) {
	rows, err := r.db.Query(
		"SELECT symbol, date, close FROM stocks WHERE date >= ? AND date <= ? ORDER BY symbol, date ASC",
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query all closes in range: %w", err)
	}
	defer rows.Close()

	series := make(map[string][]DatedClose)
	for rows.Next() {
		var symbol string
		var c DatedClose
		if err := rows.Scan(&symbol, &c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		series[symbol] = append(series[symbol], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}
	return series, nil
}

// RecentCloses returns the most recent closes in chronological order, up to limit
func (r *Repository) RecentCloses(symbol string, limit int) ([]DatedClose, error) {
	rows, err := r.db.Query(
		"SELECT date, close FROM stocks WHERE symbol = ? ORDER BY date DESC LIMIT ?",
		normalize(symbol), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent closes: %w", err)
	}
	defer rows.Close()

	var closes []DatedClose
	for rows.Next() {
		var c DatedClose
		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}

// AddBar records a new price bar and registers the symbol if it is new
func (r *Repository) AddBar(bar PriceBar) (*PriceBar, error) {
	symbol := normalize(bar.Symbol)

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("INSERT OR IGNORE INTO stock_symbols (symbol) VALUES (?)", symbol); err != nil {
		return nil, fmt.Errorf("failed to register symbol: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO stocks (symbol, date, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)",
		symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, domain.Conflict("price bar for %s on %s already exists", symbol, bar.Date)
		}
		return nil, fmt.Errorf("failed to insert bar: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	bar.Symbol = symbol
	bar.ID, _ = res.LastInsertId()

	r.log.Info().Str("symbol", symbol).Str("date", bar.Date).Msg("Price bar recorded")
	return &bar, nil
}

// CorrectBar overwrites an existing bar. This is an explicit correction, not
// part of the trading flow.
func (r *Repository) CorrectBar(bar PriceBar) (*PriceBar, error) {
	symbol := normalize(bar.Symbol)

	res, err := r.db.Exec(
		"UPDATE stocks SET open = ?, high = ?, low = ?, close = ?, volume = ? WHERE symbol = ? AND date = ?",
		bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, symbol, bar.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to correct bar: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, domain.NotFound("no price data for %s on %s", symbol, bar.Date)
	}

	r.log.Info().Str("symbol", symbol).Str("date", bar.Date).Msg("Price bar corrected")
	return r.BarOn(symbol, bar.Date)
}

// DeleteBar removes a bar
func (r *Repository) DeleteBar(symbol, date string) error {
	res, err := r.db.Exec("DELETE FROM stocks WHERE symbol = ? AND date = ?", normalize(symbol), date)
	if err != nil {
		return fmt.Errorf("failed to delete bar: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("no price data for %s on %s", symbol, date)
	}

	r.log.Info().Str("symbol", symbol).Str("date", date).Msg("Price bar deleted")
	return nil
}

// SymbolStats aggregates the full recorded history of one symbol
func (r *Repository) SymbolStats(symbol string) (*SymbolStats, error) {
	query := `
		SELECT
			symbol,
			COUNT(*) AS total_records,
			MIN(date) AS earliest_date,
			MAX(date) AS latest_date,
			AVG(close) AS avg_close,
			MAX(high) AS all_time_high,
			MIN(low) AS all_time_low,
			SUM(volume) AS total_volume
		FROM stocks
		WHERE symbol = ?
		GROUP BY symbol
	`

	var s SymbolStats
	err := r.db.QueryRow(query, normalize(symbol)).Scan(
		&s.Symbol,
		&s.TotalRecords,
		&s.EarliestDate,
		&s.LatestDate,
		&s.AvgClose,
		&s.AllTimeHigh,
		&s.AllTimeLow,
		&s.TotalVolume,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("no price data for symbol %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol stats: %w", err)
	}
	return &s, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func scanBar(row *sql.Row) (PriceBar, error) {
	var bar PriceBar
	err := row.Scan(&bar.ID, &bar.Symbol, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
	return bar, err
}

func scanBarFromRows(rows *sql.Rows) (PriceBar, error) {
	var bar PriceBar
	err := rows.Scan(&bar.ID, &bar.Symbol, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
	return bar, err
}
