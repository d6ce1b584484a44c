package trading

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
)

// SymbolRegistry answers whether a symbol is recognized
type SymbolRegistry interface {
	IsKnownSymbol(symbol string) (bool, error)
}

// PriceSource supplies the most recent close for price defaulting
type PriceSource interface {
	LatestClose(symbol string) (float64, error)
}

// Executor validates and applies buy and sell orders. The holding, cash and
// journal mutations of one order commit as a single transaction; orders
// against the same portfolio are serialized through the shared locker, so the
// read-modify-write of cash and shares cannot interleave.
type Executor struct {
	db         *sql.DB
	portfolios *portfolio.Repository
	holdings   *portfolio.HoldingRepository
	journal    *portfolio.JournalRepository
	registry   SymbolRegistry
	prices     PriceSource
	locker     *portfolio.Locker
	log        zerolog.Logger
}

// NewExecutor creates a new trade executor
func NewExecutor(
	db *sql.DB,
	portfolios *portfolio.Repository,
	holdings *portfolio.HoldingRepository,
	journal *portfolio.JournalRepository,
	registry SymbolRegistry,
	prices PriceSource,
	locker *portfolio.Locker,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		db:         db,
		portfolios: portfolios,
		holdings:   holdings,
		journal:    journal,
		registry:   registry,
		prices:     prices,
		locker:     locker,
		log:        log.With().Str("service", "executor").Logger(),
	}
}

// Buy purchases shares into a portfolio. On the first buy of a symbol the
// average cost is the trade price; later buys reweight it by share count.
func (e *Executor) Buy(userID int64, order Order) (*Result, error) {
	return e.execute(userID, SideBuy, order)
}

// Sell disposes shares from a portfolio. Average cost never changes on a
// sell; selling the full position deletes the holding.
func (e *Executor) Sell(userID int64, order Order) (*Result, error) {
	return e.execute(userID, SideSell, order)
}

func (e *Executor) execute(userID int64, side Side, order Order) (*Result, error) {
	symbol, price, err := e.validate(userID, order)
	if err != nil {
		return nil, err
	}

	total := price.Mul(decimal.NewFromInt(order.Shares))

	e.locker.Lock(order.PortfolioID)
	defer e.locker.Unlock(order.PortfolioID)

	tx, err := e.db.Begin()
	if err != nil {
		return nil, classifyStorage("failed to begin trade transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result *Result
	if side == SideBuy {
		result, err = e.applyBuy(tx, order.PortfolioID, symbol, order.Shares, price, total)
	} else {
		result, err = e.applySell(tx, order.PortfolioID, symbol, order.Shares, price, total)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classifyStorage("failed to commit trade", err)
	}

	e.log.Info().
		Str("side", string(side)).
		Str("symbol", symbol).
		Int64("shares", order.Shares).
		Str("price", price.String()).
		Int64("portfolio_id", order.PortfolioID).
		Msg("Trade executed")

	return result, nil
}

// validate runs the precondition chain shared by both sides: ownership,
// symbol registry, price resolution, positive quantity
func (e *Executor) validate(userID int64, order Order) (string, decimal.Decimal, error) {
	if _, err := e.portfolios.GetOwned(order.PortfolioID, userID); err != nil {
		return "", decimal.Zero, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(order.Symbol))
	known, err := e.registry.IsKnownSymbol(symbol)
	if err != nil {
		return "", decimal.Zero, err
	}
	if !known {
		return "", decimal.Zero, domain.NotFound("unknown symbol %s", symbol)
	}

	price, err := e.resolvePrice(symbol, order.Price)
	if err != nil {
		return "", decimal.Zero, err
	}

	if order.Shares <= 0 || price.LessThanOrEqual(decimal.Zero) {
		return "", decimal.Zero, domain.Validation("shares and price must be positive")
	}

	return symbol, price, nil
}

// resolvePrice uses the caller's price when supplied, otherwise the most
// recent close for the symbol
func (e *Executor) resolvePrice(symbol string, price *decimal.Decimal) (decimal.Decimal, error) {
	if price != nil {
		return *price, nil
	}

	close, err := e.prices.LatestClose(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(close), nil
}

func (e *Executor) applyBuy(tx *sql.Tx, portfolioID int64, symbol string, shares int64, price, total decimal.Decimal) (*Result, error) {
	cash, err := e.portfolios.GetCashTx(tx, portfolioID)
	if err != nil {
		return nil, err
	}
	if cash.LessThan(total) {
		return nil, domain.Conflict("not enough cash: balance %s, cost %s",
			cash.StringFixed(2), total.StringFixed(2))
	}

	held, err := e.holdings.GetTx(tx, portfolioID, symbol)
	switch {
	case err == nil:
		// Weighted-average cost over old and new shares
		oldValue := held.AvgPrice.Mul(decimal.NewFromInt(held.Shares))
		newShares := held.Shares + shares
		newAvg := oldValue.Add(total).Div(decimal.NewFromInt(newShares))
		if err := e.holdings.UpdateTx(tx, held.ID, newShares, newAvg); err != nil {
			return nil, err
		}
	case domain.IsKind(err, domain.KindNotFound):
		if err := e.holdings.CreateTx(tx, portfolioID, symbol, shares, price); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	newBalance := cash.Sub(total)
	if err := e.portfolios.SetCashTx(tx, portfolioID, newBalance); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("Bought %d shares of %s at $%s each.", shares, symbol, price.String())
	if err := e.journal.AppendTx(tx, portfolioID, total.Neg(), detail); err != nil {
		return nil, err
	}

	holding, err := e.holdings.GetTx(tx, portfolioID, symbol)
	if err != nil {
		return nil, err
	}

	return &Result{
		Side:        SideBuy,
		Symbol:      symbol,
		Shares:      shares,
		Price:       price,
		Total:       total,
		CashBalance: newBalance,
		Holding:     holding,
	}, nil
}

func (e *Executor) applySell(tx *sql.Tx, portfolioID int64, symbol string, shares int64, price, total decimal.Decimal) (*Result, error) {
	held, err := e.holdings.GetTx(tx, portfolioID, symbol)
	if err != nil {
		return nil, err
	}
	if held.Shares < shares {
		return nil, domain.Conflict("not enough shares: held %d, requested %d", held.Shares, shares)
	}

	var holding *portfolio.Holding
	remaining := held.Shares - shares
	if remaining > 0 {
		if err := e.holdings.UpdateSharesTx(tx, held.ID, remaining); err != nil {
			return nil, err
		}
		holding = held
		holding.Shares = remaining
	} else {
		// Position fully closed; a holding never persists at zero shares
		if err := e.holdings.DeleteTx(tx, held.ID); err != nil {
			return nil, err
		}
	}

	cash, err := e.portfolios.GetCashTx(tx, portfolioID)
	if err != nil {
		return nil, err
	}
	newBalance := cash.Add(total)
	if err := e.portfolios.SetCashTx(tx, portfolioID, newBalance); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("Sold %d shares of %s at $%s each.", shares, symbol, price.String())
	if err := e.journal.AppendTx(tx, portfolioID, total, detail); err != nil {
		return nil, err
	}

	return &Result{
		Side:        SideSell,
		Symbol:      symbol,
		Shares:      shares,
		Price:       price,
		Total:       total,
		CashBalance: newBalance,
		Holding:     holding,
	}, nil
}

// classifyStorage maps lock contention to a retryable error and wraps the rest
func classifyStorage(msg string, err error) error {
	if database.IsBusy(err) || database.IsTimeout(err) {
		return domain.Transient(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
