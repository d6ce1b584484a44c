package market

import (
	talib "github.com/markcheno/go-talib"

	"github.com/aristath/stockfolio/internal/domain"
)

// indicatorLookback is how many recent closes feed the indicator calculations
const indicatorLookback = 200

// ComputeIndicators calculates SMA, EMA and RSI over recent closes for a
// symbol. An indicator that lacks enough history is reported as null rather
// than an error.
func (r *Repository) ComputeIndicators(symbol string, period int) (*Indicators, error) {
	if period <= 0 {
		return nil, domain.Validation("period must be a positive integer, got %d", period)
	}

	recent, err := r.RecentCloses(symbol, indicatorLookback)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, domain.NotFound("no price data for symbol %s", symbol)
	}

	closes := make([]float64, len(recent))
	for i, c := range recent {
		closes[i] = c.Close
	}

	out := &Indicators{Symbol: normalize(symbol), Period: period}
	if len(closes) >= period {
		out.SMA = lastValue(talib.Sma(closes, period))
		out.EMA = lastValue(talib.Ema(closes, period))
	}
	// RSI needs one extra observation for the first delta
	if len(closes) > period {
		out.RSI = lastValue(talib.Rsi(closes, period))
	}
	return out, nil
}

func lastValue(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	return &v
}
