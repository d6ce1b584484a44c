package forecast

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/market"
)

const (
	// historyLimit caps how many recent closes feed the regression.
	historyLimit = 50
	// minHistory is the smallest series a regression is attempted on.
	minHistory = 5
	// horizonDays is the length of the projection in calendar days.
	horizonDays = 30
)

// HistorySource provides the recent close series a forecast is fitted to.
type HistorySource interface {
	IsKnownSymbol(symbol string) (bool, error)
	RecentCloses(symbol string, limit int) ([]market.DatedClose, error)
}

// PredictedClose is one projected closing price.
type PredictedClose struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Forecast is a linear projection of a symbol's closing price.
type Forecast struct {
	Symbol      string           `json:"symbol"`
	Trend       string           `json:"trend"`
	Summary     string           `json:"summary"`
	Slope       float64          `json:"slope"`
	Predictions []PredictedClose `json:"predictions"`
}

// Service fits a least-squares line through a symbol's recent closes and
// projects it forward.
type Service struct {
	history HistorySource
	log     zerolog.Logger
}

// NewService creates a forecast service.
func NewService(history HistorySource, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		log:     log.With().Str("component", "forecast_service").Logger(),
	}
}

// Predict projects a symbol's closing price thirty calendar days forward from
// its most recent close. It needs at least five closes to fit a line.
func (s *Service) Predict(symbol string) (*Forecast, error) {
	known, err := s.history.IsKnownSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, domain.NotFound("unknown symbol %s", symbol)
	}

	closes, err := s.history.RecentCloses(symbol, historyLimit)
	if err != nil {
		return nil, err
	}
	if len(closes) < minHistory {
		return nil, domain.Validation("not enough price history for %s: have %d closes, need %d", symbol, len(closes), minHistory)
	}

	xs := make([]float64, len(closes))
	ys := make([]float64, len(closes))
	for i, c := range closes {
		xs[i] = float64(i)
		ys[i] = c.Close
	}
	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	lastDate, err := time.Parse(domain.DateLayout, closes[len(closes)-1].Date)
	if err != nil {
		return nil, fmt.Errorf("parsing last close date: %w", err)
	}

	fc := &Forecast{
		Symbol:      symbol,
		Slope:       slope,
		Predictions: make([]PredictedClose, 0, horizonDays),
	}
	for day := 1; day <= horizonDays; day++ {
		fc.Predictions = append(fc.Predictions, PredictedClose{
			Date:  lastDate.AddDate(0, 0, day).Format(domain.DateLayout),
			Close: intercept + slope*float64(len(closes)-1+day),
		})
	}
	fc.Trend, fc.Summary = describeTrend(slope)
	return fc, nil
}

func describeTrend(slope float64) (trend, summary string) {
	switch {
	case slope > 0:
		return "upward", "The predicted trend is upward, good time to consider buying."
	case slope < 0:
		return "downward", "The predicted trend is downward, avoid buying at the moment."
	default:
		return "stable", "Stock price is predicted to remain relatively stable."
	}
}
