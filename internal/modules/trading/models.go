package trading

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/modules/portfolio"
)

// Side is the direction of an order
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is a validated buy or sell request. Price is optional; when omitted
// the most recent close for the symbol is used.
type Order struct {
	PortfolioID int64            `json:"portfolio_id"`
	Symbol      string           `json:"symbol"`
	Shares      int64            `json:"shares"`
	Price       *decimal.Decimal `json:"price"`
}

// Result reports the applied trade and the state it left behind. Holding is
// nil when a sell closed the position entirely.
type Result struct {
	Side        Side               `json:"side"`
	Symbol      string             `json:"symbol"`
	Shares      int64              `json:"shares"`
	Price       decimal.Decimal    `json:"price"`
	Total       decimal.Decimal    `json:"total"`
	CashBalance decimal.Decimal    `json:"cash_balance"`
	Holding     *portfolio.Holding `json:"holding"`
}
