package trading

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A second connection would see a fresh empty memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	return db
}

type fixture struct {
	db        *sql.DB
	executor  *Executor
	portfolio *portfolio.Portfolio
	holdings  *portfolio.HoldingRepository
	journal   *portfolio.JournalRepository
	repo      *portfolio.Repository
	prices    *market.Repository
}

const testUser int64 = 7

func setupExecutor(t *testing.T, cash string) *fixture {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	prices := market.NewRepository(db, log)
	portfolioRepo := portfolio.NewRepository(db, log)
	holdingRepo := portfolio.NewHoldingRepository(db, log)
	journalRepo := portfolio.NewJournalRepository(db, log)

	p, err := portfolioRepo.Create(testUser, "Growth", decimal.RequireFromString(cash))
	require.NoError(t, err)

	executor := NewExecutor(db, portfolioRepo, holdingRepo, journalRepo, prices, prices, portfolio.NewLocker(), log)

	return &fixture{
		db:        db,
		executor:  executor,
		portfolio: p,
		holdings:  holdingRepo,
		journal:   journalRepo,
		repo:      portfolioRepo,
		prices:    prices,
	}
}

func (f *fixture) addClose(t *testing.T, symbol, date string, close float64) {
	t.Helper()
	_, err := f.prices.AddBar(market.PriceBar{
		Symbol: symbol,
		Date:   date,
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 1000,
	})
	require.NoError(t, err)
}

func (f *fixture) cash(t *testing.T) string {
	t.Helper()
	cash, err := f.repo.GetCash(f.portfolio.ID, testUser)
	require.NoError(t, err)
	return cash.String()
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (f *fixture) order(symbol string, shares int64, p *decimal.Decimal) Order {
	return Order{PortfolioID: f.portfolio.ID, Symbol: symbol, Shares: shares, Price: p}
}

func TestBuyThenAverageThenPartialSell(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	// First buy establishes the position at the trade price
	res, err := f.executor.Buy(testUser, f.order("AAA", 10, price("100")))
	require.NoError(t, err)
	assert.Equal(t, "9000", res.CashBalance.String())
	assert.Equal(t, int64(10), res.Holding.Shares)
	assert.Equal(t, "100", res.Holding.AvgPrice.String())

	// Second buy reweights average cost: (10*100 + 10*120) / 20 = 110
	res, err = f.executor.Buy(testUser, f.order("AAA", 10, price("120")))
	require.NoError(t, err)
	assert.Equal(t, "7800", res.CashBalance.String())
	assert.Equal(t, int64(20), res.Holding.Shares)
	assert.Equal(t, "110", res.Holding.AvgPrice.String())

	// Partial sell decrements shares, never touches average cost
	res, err = f.executor.Sell(testUser, f.order("AAA", 15, price("130")))
	require.NoError(t, err)
	assert.Equal(t, "9750", res.CashBalance.String())
	require.NotNil(t, res.Holding)
	assert.Equal(t, int64(5), res.Holding.Shares)
	assert.Equal(t, "110", res.Holding.AvgPrice.String())

	assert.Equal(t, "9750", f.cash(t))

	// One journal entry per executed trade
	entries, err := f.journal.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Bought 10 shares of AAA at $100 each.", entries[0].Detail)
	assert.Equal(t, "-1000", entries[0].Amount.String())
	assert.Equal(t, "Bought 10 shares of AAA at $120 each.", entries[1].Detail)
	assert.Equal(t, "Sold 15 shares of AAA at $130 each.", entries[2].Detail)
	assert.Equal(t, "1950", entries[2].Amount.String())
}

func TestBuy_DefaultsToLatestClose(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 95.0)
	f.addClose(t, "AAA", "2024-01-03", 102.5)

	res, err := f.executor.Buy(testUser, f.order("AAA", 4, nil))
	require.NoError(t, err)
	assert.Equal(t, "102.5", res.Price.String())
	assert.Equal(t, "9590", res.CashBalance.String())
}

func TestBuy_InsufficientCashLeavesStateUntouched(t *testing.T) {
	f := setupExecutor(t, "500")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser, f.order("AAA", 10, price("100")))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	assert.Equal(t, "500", f.cash(t))

	holdings, err := f.holdings.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	entries, err := f.journal.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuy_UnknownSymbol(t *testing.T) {
	f := setupExecutor(t, "10000")

	_, err := f.executor.Buy(testUser, f.order("ZZZ", 1, price("10")))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestBuy_NonPositiveQuantity(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser, f.order("AAA", 0, price("100")))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.executor.Buy(testUser, f.order("AAA", 5, price("-1")))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestBuy_ForeignPortfolioNotFound(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser+1, f.order("AAA", 1, price("100")))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSell_WithoutHolding(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Sell(testUser, f.order("AAA", 1, price("100")))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestSell_MoreThanHeld(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser, f.order("AAA", 5, price("100")))
	require.NoError(t, err)

	_, err = f.executor.Sell(testUser, f.order("AAA", 6, price("100")))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// Failed sell leaves the position intact
	holdings, err := f.holdings.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(5), holdings[0].Shares)
}

func TestSell_FullPositionDeletesHolding(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser, f.order("AAA", 5, price("100")))
	require.NoError(t, err)

	res, err := f.executor.Sell(testUser, f.order("AAA", 5, price("110")))
	require.NoError(t, err)
	assert.Nil(t, res.Holding)
	assert.Equal(t, "10050", res.CashBalance.String())

	holdings, err := f.holdings.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	// Rebuying after a full exit starts a fresh position at the new price
	res, err = f.executor.Buy(testUser, f.order("AAA", 2, price("90")))
	require.NoError(t, err)
	assert.Equal(t, "90", res.Holding.AvgPrice.String())
}

func TestBuy_FractionalPricesStayExact(t *testing.T) {
	f := setupExecutor(t, "1000")
	f.addClose(t, "AAA", "2024-01-02", 100.0)

	_, err := f.executor.Buy(testUser, f.order("AAA", 3, price("33.33")))
	require.NoError(t, err)
	assert.Equal(t, "900.01", f.cash(t))

	res, err := f.executor.Sell(testUser, f.order("AAA", 3, price("33.33")))
	require.NoError(t, err)
	assert.Equal(t, "1000", res.CashBalance.String())
}

func TestConcurrentTradesReconcile(t *testing.T) {
	f := setupExecutor(t, "10000")
	f.addClose(t, "AAA", "2024-01-02", 10.0)

	// Seed a position large enough that no sell can fail regardless of
	// interleaving: sells total 50 shares against an initial 50.
	_, err := f.executor.Buy(testUser, f.order("AAA", 50, price("10")))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.executor.Buy(testUser, f.order("AAA", 2, price("10")))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.executor.Sell(testUser, f.order("AAA", 5, price("10")))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 50 bought + 20 bought - 50 sold; every read-modify-write must land.
	holdings, err := f.holdings.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(20), holdings[0].Shares)
	assert.Equal(t, "9800", f.cash(t))

	entries, err := f.journal.ListByPortfolio(f.portfolio.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 21)
}
