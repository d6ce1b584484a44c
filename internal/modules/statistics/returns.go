package statistics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/pkg/formulas"
)

// PriceSeries provides the close series the calculator derives returns from.
type PriceSeries interface {
	ClosesInRange(symbol, startDate, endDate string) ([]market.DatedClose, error)
	ClosesInRangeAll(startDate, endDate string) (map[string][]market.DatedClose, error)
}

// Return is one daily return, keyed by the date of the later close.
type Return struct {
	Date  string
	Value float64
}

// Calculator turns close series into daily return series. Returns are simple
// day-over-day ratios; a day whose previous close is zero produces no return.
type Calculator struct {
	prices PriceSeries
}

// NewCalculator creates a return calculator over the given price series.
func NewCalculator(prices PriceSeries) *Calculator {
	return &Calculator{prices: prices}
}

// DailyReturns computes the dated daily returns for one symbol over a range.
func (c *Calculator) DailyReturns(symbol, startDate, endDate string) ([]Return, error) {
	closes, err := c.prices.ClosesInRange(symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("loading closes for %s: %w", symbol, err)
	}
	return returnsFromCloses(closes), nil
}

// AllReturns computes the dated daily returns for every symbol that has at
// least one close in the range.
func (c *Calculator) AllReturns(startDate, endDate string) (map[string][]Return, error) {
	series, err := c.prices.ClosesInRangeAll(startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("loading closes: %w", err)
	}
	all := make(map[string][]Return, len(series))
	for symbol, closes := range series {
		if rets := returnsFromCloses(closes); len(rets) > 0 {
			all[symbol] = rets
		}
	}
	return all, nil
}

// MarketReturns derives the market return series from per-symbol returns: for
// each date the market return is the mean return across every symbol with a
// defined return on that date.
func MarketReturns(all map[string][]Return) map[string]float64 {
	byDate := make(map[string][]float64)
	for _, rets := range all {
		for _, r := range rets {
			byDate[r.Date] = append(byDate[r.Date], r.Value)
		}
	}
	mkt := make(map[string]float64, len(byDate))
	for date, values := range byDate {
		mkt[date] = stat.Mean(values, nil)
	}
	return mkt
}

// Values strips the dates off a return series.
func Values(rets []Return) []float64 {
	values := make([]float64, len(rets))
	for i, r := range rets {
		values[i] = r.Value
	}
	return values
}

func returnsFromCloses(closes []market.DatedClose) []Return {
	rets := make([]Return, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1].Close
		if prev == 0 {
			continue
		}
		rets = append(rets, Return{
			Date:  closes[i].Date,
			Value: (closes[i].Close - prev) / prev,
		})
	}
	return rets
}

// coefficientOfVariation computes population stddev over mean, nil when the
// series is empty or its mean is zero.
func coefficientOfVariation(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	mean := formulas.Mean(values)
	if mean == 0 {
		return nil
	}
	cov := formulas.PopStdDev(values) / mean
	return &cov
}

// beta computes popcov(symbol, market)/popvar(market) over the dates both
// series define, nil when there is no overlap or the market variance is zero.
func beta(symbolRets []Return, marketRets map[string]float64) *float64 {
	var xs, ys []float64
	for _, r := range symbolRets {
		m, ok := marketRets[r.Date]
		if !ok {
			continue
		}
		xs = append(xs, r.Value)
		ys = append(ys, m)
	}
	if len(xs) == 0 {
		return nil
	}
	mktVar := formulas.PopVariance(ys)
	if mktVar == 0 {
		return nil
	}
	b := formulas.PopCovariance(xs, ys) / mktVar
	return &b
}
