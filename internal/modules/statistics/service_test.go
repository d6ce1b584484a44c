package statistics

import (
	"database/sql"
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

const testUser int64 = 11

type fixture struct {
	service   *Service
	prices    *market.Repository
	portfolio *portfolio.Portfolio
}

func setupService(t *testing.T, held ...string) *fixture {
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	prices := market.NewRepository(db, log)
	portfolioRepo := portfolio.NewRepository(db, log)
	holdingRepo := portfolio.NewHoldingRepository(db, log)

	p, err := portfolioRepo.Create(testUser, "Risk", decimal.RequireFromString("1000"))
	require.NoError(t, err)

	if len(held) > 0 {
		tx, err := db.Begin()
		require.NoError(t, err)
		for _, symbol := range held {
			require.NoError(t, holdingRepo.CreateTx(tx, p.ID, symbol, 1, decimal.RequireFromString("10")))
		}
		require.NoError(t, tx.Commit())
	}

	service := NewService(
		portfolioRepo,
		holdingRepo,
		NewCalculator(prices),
		NewCacheRepository(db, log),
		log,
	)

	return &fixture{service: service, prices: prices, portfolio: p}
}

func (f *fixture) addCloses(t *testing.T, symbol string, dates []string, closes []float64) {
	t.Helper()
	require.Equal(t, len(dates), len(closes))
	for i := range dates {
		_, err := f.prices.AddBar(market.PriceBar{
			Symbol: symbol,
			Date:   dates[i],
			Open:   closes[i],
			High:   closes[i],
			Low:    closes[i],
			Close:  closes[i],
			Volume: 100,
		})
		require.NoError(t, err)
	}
}

var tradingDays = []string{"2024-01-02", "2024-01-03", "2024-01-04"}

func statFor(t *testing.T, report *Report, symbol string) SymbolStats {
	t.Helper()
	for _, s := range report.Stats {
		if s.Symbol == symbol {
			return s
		}
	}
	t.Fatalf("no stats for %s", symbol)
	return SymbolStats{}
}

func TestStatistics_COVAndBeta(t *testing.T) {
	f := setupService(t, "AAA", "BBB")
	// AAA returns: 0.1, 0.1. BBB returns: 0.2, -0.1.
	// Market: mean(0.1, 0.2)=0.15 then mean(0.1, -0.1)=0.
	f.addCloses(t, "AAA", tradingDays, []float64{100, 110, 121})
	f.addCloses(t, "BBB", tradingDays, []float64{100, 120, 108})

	report, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, report.Stats, 2)

	aaa := statFor(t, report, "AAA")
	require.NotNil(t, aaa.COV)
	require.NotNil(t, aaa.Beta)
	// Constant returns: zero dispersion, zero comovement with the market
	assert.InDelta(t, 0.0, *aaa.COV, 1e-9)
	assert.InDelta(t, 0.0, *aaa.Beta, 1e-9)
	assert.False(t, aaa.Cached)

	bbb := statFor(t, report, "BBB")
	require.NotNil(t, bbb.COV)
	require.NotNil(t, bbb.Beta)
	// popstd(0.2, -0.1)/mean = 0.15/0.05
	assert.InDelta(t, 3.0, *bbb.COV, 1e-9)
	assert.InDelta(t, 2.0, *bbb.Beta, 1e-9)
}

func TestStatistics_CacheSurvivesPriceCorrection(t *testing.T) {
	f := setupService(t, "AAA", "BBB")
	f.addCloses(t, "AAA", tradingDays, []float64{100, 110, 121})
	f.addCloses(t, "BBB", tradingDays, []float64{100, 120, 108})

	first, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	firstBBB := statFor(t, first, "BBB")

	// A later price correction must not change an already cached result
	_, err = f.prices.CorrectBar(market.PriceBar{
		Symbol: "BBB", Date: "2024-01-04",
		Open: 500, High: 500, Low: 500, Close: 500, Volume: 100,
	})
	require.NoError(t, err)

	second, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	secondBBB := statFor(t, second, "BBB")
	assert.True(t, secondBBB.Cached)
	assert.Equal(t, *firstBBB.COV, *secondBBB.COV)
	assert.Equal(t, *firstBBB.Beta, *secondBBB.Beta)

	// A different range is a different cache key and sees the correction
	narrow, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-02", "2024-01-31")
	require.NoError(t, err)
	narrowBBB := statFor(t, narrow, "BBB")
	assert.False(t, narrowBBB.Cached)
	assert.NotEqual(t, *firstBBB.COV, *narrowBBB.COV)
}

func TestStatistics_UndefinedFiguresAreNil(t *testing.T) {
	f := setupService(t, "DDD")
	// One close yields no returns at all
	f.addCloses(t, "DDD", tradingDays[:1], []float64{100})

	report, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, report.Stats, 1)
	assert.Nil(t, report.Stats[0].COV)
	assert.Nil(t, report.Stats[0].Beta)

	// The nil result is itself cached
	cached, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.True(t, cached.Stats[0].Cached)
	assert.Nil(t, cached.Stats[0].COV)
}

func TestStatistics_NoHoldings(t *testing.T) {
	f := setupService(t)

	_, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestStatistics_BadRange(t *testing.T) {
	f := setupService(t, "AAA")

	_, err := f.service.Statistics(f.portfolio.ID, testUser, "2024-02-01", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestStatistics_ForeignPortfolio(t *testing.T) {
	f := setupService(t, "AAA")

	_, err := f.service.Statistics(f.portfolio.ID, testUser+1, "2024-01-01", "2024-01-31")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCorrelations_PairsAndSelfPairs(t *testing.T) {
	f := setupService(t, "AAA", "BBB")
	// AAA returns: 0.1, -0.1. BBB returns: 0.2, -0.1. Perfectly correlated
	// over two observations.
	f.addCloses(t, "AAA", tradingDays, []float64{100, 110, 99})
	f.addCloses(t, "BBB", tradingDays, []float64{100, 120, 108})

	matrix, err := f.service.Correlations(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	// AAA-AAA, AAA-BBB, BBB-BBB
	require.Len(t, matrix.Pairs, 3)

	self := matrix.Pairs[0]
	assert.Equal(t, "AAA", self.Symbol1)
	assert.Equal(t, "AAA", self.Symbol2)
	require.NotNil(t, self.Correlation)
	assert.Equal(t, 1.0, *self.Correlation)
	// Self-covariance is the population variance of the return series
	require.NotNil(t, self.Covariance)
	assert.InDelta(t, 0.01, *self.Covariance, 1e-9)
	assert.Equal(t, 2, self.Observations)

	cross := matrix.Pairs[1]
	assert.Equal(t, "AAA", cross.Symbol1)
	assert.Equal(t, "BBB", cross.Symbol2)
	require.NotNil(t, cross.Correlation)
	assert.InDelta(t, 1.0, *cross.Correlation, 1e-9)
	// popcov((0.1, -0.1), (0.2, -0.1))
	require.NotNil(t, cross.Covariance)
	assert.InDelta(t, 0.015, *cross.Covariance, 1e-9)
	assert.Equal(t, 2, cross.Observations)

	selfBBB := matrix.Pairs[2]
	assert.Equal(t, "BBB", selfBBB.Symbol1)
	require.NotNil(t, selfBBB.Covariance)
	assert.InDelta(t, 0.0225, *selfBBB.Covariance, 1e-9)
}

func TestCorrelations_ConstantSeriesIsUndefined(t *testing.T) {
	f := setupService(t, "AAA", "BBB")
	// AAA has constant returns; Pearson against it is undefined
	f.addCloses(t, "AAA", tradingDays, []float64{100, 110, 121})
	f.addCloses(t, "BBB", tradingDays, []float64{100, 120, 108})

	matrix, err := f.service.Correlations(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)

	cross := matrix.Pairs[1]
	assert.Equal(t, "BBB", cross.Symbol2)
	assert.Nil(t, cross.Correlation)
	// Covariance against a constant series is defined, and zero
	require.NotNil(t, cross.Covariance)
	assert.InDelta(t, 0.0, *cross.Covariance, 1e-9)
	assert.Equal(t, 2, cross.Observations)

	// The self-pair of a constant series is still 1 by definition
	self := matrix.Pairs[0]
	require.NotNil(t, self.Correlation)
	assert.Equal(t, 1.0, *self.Correlation)
	require.NotNil(t, self.Covariance)
	assert.InDelta(t, 0.0, *self.Covariance, 1e-9)
}

func TestCorrelations_NoOverlap(t *testing.T) {
	f := setupService(t, "AAA", "BBB")
	f.addCloses(t, "AAA", []string{"2024-01-02", "2024-01-03"}, []float64{100, 110})
	f.addCloses(t, "BBB", []string{"2024-01-08", "2024-01-09"}, []float64{100, 120})

	matrix, err := f.service.Correlations(f.portfolio.ID, testUser, "2024-01-01", "2024-01-31")
	require.NoError(t, err)

	cross := matrix.Pairs[1]
	assert.Nil(t, cross.Correlation)
	assert.Nil(t, cross.Covariance)
	assert.Equal(t, 0, cross.Observations)
}
