package statistics

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/pkg/formulas"
)

// PortfolioSource resolves a portfolio for its owner.
type PortfolioSource interface {
	GetOwned(portfolioID, userID int64) (*portfolio.Portfolio, error)
}

// HoldingSource lists the symbols a portfolio currently holds.
type HoldingSource interface {
	Symbols(portfolioID int64) ([]string, error)
}

// Service computes per-symbol risk statistics and cross-holding correlations
// for a portfolio over a date range. COV and beta results are cached by the
// exact request key; correlations are always computed fresh.
type Service struct {
	portfolios PortfolioSource
	holdings   HoldingSource
	calc       *Calculator
	cache      *CacheRepository
	log        zerolog.Logger
}

// NewService creates a statistics service.
func NewService(portfolios PortfolioSource, holdings HoldingSource, calc *Calculator, cache *CacheRepository, log zerolog.Logger) *Service {
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		calc:       calc,
		cache:      cache,
		log:        log.With().Str("component", "statistics_service").Logger(),
	}
}

// Statistics returns COV and beta for every symbol the portfolio holds.
// Cached entries are served as stored even if prices changed since they were
// computed; only uncached symbols are calculated and written back.
func (s *Service) Statistics(portfolioID, userID int64, startDate, endDate string) (*Report, error) {
	symbols, err := s.heldSymbols(portfolioID, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PortfolioID: portfolioID,
		StartDate:   startDate,
		EndDate:     endDate,
		Stats:       make([]SymbolStats, 0, len(symbols)),
	}

	var misses []string
	for _, symbol := range symbols {
		entry, ok, err := s.cache.Get(portfolioID, symbol, startDate, endDate)
		if err != nil {
			return nil, err
		}
		if ok {
			report.Stats = append(report.Stats, SymbolStats{
				Symbol: symbol,
				COV:    entry.COV,
				Beta:   entry.Beta,
				Cached: true,
			})
			continue
		}
		misses = append(misses, symbol)
	}

	if len(misses) > 0 {
		// The market series spans every symbol with price data in the
		// range, not just the portfolio's holdings.
		all, err := s.calc.AllReturns(startDate, endDate)
		if err != nil {
			return nil, err
		}
		marketRets := MarketReturns(all)

		for _, symbol := range misses {
			rets := all[symbol]
			stats := SymbolStats{
				Symbol: symbol,
				COV:    coefficientOfVariation(Values(rets)),
				Beta:   beta(rets, marketRets),
			}
			if err := s.cache.Upsert(&CacheEntry{
				PortfolioID: portfolioID,
				Symbol:      symbol,
				StartDate:   startDate,
				EndDate:     endDate,
				COV:         stats.COV,
				Beta:        stats.Beta,
			}); err != nil {
				return nil, err
			}
			report.Stats = append(report.Stats, stats)
		}
	}

	sort.Slice(report.Stats, func(i, j int) bool {
		return report.Stats[i].Symbol < report.Stats[j].Symbol
	})
	return report, nil
}

// Correlations returns the Pearson correlation for every unordered pair of
// held symbols, self-pairs included, over the days both have a defined return.
func (s *Service) Correlations(portfolioID, userID int64, startDate, endDate string) (*CorrelationMatrix, error) {
	symbols, err := s.heldSymbols(portfolioID, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	sort.Strings(symbols)

	returns := make(map[string][]Return, len(symbols))
	for _, symbol := range symbols {
		rets, err := s.calc.DailyReturns(symbol, startDate, endDate)
		if err != nil {
			return nil, err
		}
		returns[symbol] = rets
	}

	matrix := &CorrelationMatrix{
		PortfolioID: portfolioID,
		StartDate:   startDate,
		EndDate:     endDate,
		Pairs:       make([]CorrelationPair, 0, len(symbols)*(len(symbols)+1)/2),
	}
	for i, a := range symbols {
		for _, b := range symbols[i:] {
			matrix.Pairs = append(matrix.Pairs, correlate(a, b, returns[a], returns[b]))
		}
	}
	return matrix, nil
}

// heldSymbols validates the request and resolves the held symbol set.
func (s *Service) heldSymbols(portfolioID, userID int64, startDate, endDate string) ([]string, error) {
	if err := domain.ValidateRange(startDate, endDate); err != nil {
		return nil, err
	}
	if _, err := s.portfolios.GetOwned(portfolioID, userID); err != nil {
		return nil, err
	}
	symbols, err := s.holdings.Symbols(portfolioID)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, domain.NotFound("portfolio %d has no holdings", portfolioID)
	}
	return symbols, nil
}

func correlate(a, b string, aRets, bRets []Return) CorrelationPair {
	pair := CorrelationPair{Symbol1: a, Symbol2: b}

	if a == b {
		// A symbol is perfectly correlated with itself whenever it has
		// at least one defined return; its self-covariance is the
		// population variance of the series.
		pair.Observations = len(aRets)
		if len(aRets) > 0 {
			one := 1.0
			pair.Correlation = &one
			variance := formulas.PopVariance(Values(aRets))
			pair.Covariance = &variance
		}
		return pair
	}

	byDate := make(map[string]float64, len(bRets))
	for _, r := range bRets {
		byDate[r.Date] = r.Value
	}
	var xs, ys []float64
	for _, r := range aRets {
		if v, ok := byDate[r.Date]; ok {
			xs = append(xs, r.Value)
			ys = append(ys, v)
		}
	}
	pair.Observations = len(xs)
	if len(xs) == 0 {
		return pair
	}

	cov := formulas.PopCovariance(xs, ys)
	pair.Covariance = &cov

	if len(xs) < 2 {
		return pair
	}
	corr := formulas.Correlation(xs, ys)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		return pair
	}
	pair.Correlation = &corr
	return pair
}
