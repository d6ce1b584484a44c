package portfolio

import "github.com/shopspring/decimal"

// Portfolio holds a user's cash and positions under one name
type Portfolio struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   string          `json:"created_at"`
}

// Holding is a portfolio's position in one symbol. Shares are positive whole
// units while the holding exists; a holding at zero shares is deleted, never
// kept.
type Holding struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Shares      int64           `json:"shares"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// TransactionRecord is an append-only journal entry for one cash movement.
// The amount is signed: deposits and sale proceeds positive, withdrawals and
// purchase costs negative.
type TransactionRecord struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Amount      decimal.Decimal `json:"amount"`
	Detail      string          `json:"detail"`
	CreatedAt   string          `json:"created_at"`
}

// HoldingValue is a holding enriched with its latest close and market value
type HoldingValue struct {
	Symbol    string   `json:"symbol"`
	Shares    int64    `json:"shares"`
	LastClose *float64 `json:"last_close"`
	Value     *float64 `json:"value"`
}

// Value is the valuation of a whole portfolio
type Value struct {
	PortfolioID   int64           `json:"portfolio_id"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	HoldingsValue float64         `json:"holdings_value"`
	Total         float64         `json:"total"`
}

// Snapshot is a portfolio valuation recorded on one date
type Snapshot struct {
	PortfolioID   int64   `json:"portfolio_id"`
	Date          string  `json:"date"`
	TotalValue    float64 `json:"total_value"`
	CashBalance   float64 `json:"cash_balance"`
	HoldingsValue float64 `json:"holdings_value"`
	PositionCount int     `json:"position_count"`
}
