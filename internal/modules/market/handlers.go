package market

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/httputil"
)

// Handlers contains HTTP handlers for the price store API
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates new market data handlers
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes registers the price store routes on the stocks subrouter
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListSymbols)
	r.Post("/", h.HandleAddBar)
	r.Get("/{symbol}", h.HandleGetBars)
	r.Get("/{symbol}/latest", h.HandleGetLatest)
	r.Get("/{symbol}/stats", h.HandleGetStats)
	r.Get("/{symbol}/indicators", h.HandleGetIndicators)
	r.Get("/{symbol}/range/{start}/{end}", h.HandleGetRange)
	r.Get("/{symbol}/{date}", h.HandleGetBarOnDate)
	r.Put("/{symbol}/{date}", h.HandleCorrectBar)
	r.Delete("/{symbol}/{date}", h.HandleDeleteBar)
}

// HandleListSymbols returns every recognized symbol
// GET /api/stocks
func (h *Handlers) HandleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.repo.Symbols()
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(symbols),
		"symbols": symbols,
	})
}

// HandleGetBars returns recent bars for a symbol
// GET /api/stocks/{symbol}?limit=100&order=DESC
func (h *Handlers) HandleGetBars(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	asc := strings.EqualFold(r.URL.Query().Get("order"), "ASC")

	bars, err := h.repo.Bars(symbol, limit, asc)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if len(bars) == 0 {
		httputil.Error(w, h.log, domain.NotFound("no price data for symbol %s", symbol))
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"count": len(bars),
		"data":  bars,
	})
}

// HandleGetLatest returns the most recent bar for a symbol
// GET /api/stocks/{symbol}/latest
func (h *Handlers) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	bar, err := h.repo.LatestBar(chi.URLParam(r, "symbol"))
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bar)
}

// HandleGetStats returns aggregate history stats for a symbol
// GET /api/stocks/{symbol}/stats
func (h *Handlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.SymbolStats(chi.URLParam(r, "symbol"))
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// HandleGetIndicators returns SMA/EMA/RSI over recent closes
// GET /api/stocks/{symbol}/indicators?period=14
func (h *Handlers) HandleGetIndicators(w http.ResponseWriter, r *http.Request) {
	period := 14
	if periodParam := r.URL.Query().Get("period"); periodParam != "" {
		parsed, err := strconv.Atoi(periodParam)
		if err != nil {
			httputil.Error(w, h.log, domain.Validation("period must be an integer"))
			return
		}
		period = parsed
	}

	indicators, err := h.repo.ComputeIndicators(chi.URLParam(r, "symbol"), period)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, indicators)
}

// HandleGetRange returns bars within a date range, oldest first
// GET /api/stocks/{symbol}/range/{start}/{end}
func (h *Handlers) HandleGetRange(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	start := chi.URLParam(r, "start")
	end := chi.URLParam(r, "end")

	if err := domain.ValidateRange(start, end); err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	closes, err := h.repo.ClosesInRange(symbol, start, end)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if closes == nil {
		closes = []DatedClose{}
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"symbol": strings.ToUpper(symbol),
		"count":  len(closes),
		"data":   closes,
	})
}

// HandleGetBarOnDate returns the bar for a symbol on one date
// GET /api/stocks/{symbol}/{date}
func (h *Handlers) HandleGetBarOnDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := domain.ParseDate(date); err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	bar, err := h.repo.BarOn(chi.URLParam(r, "symbol"), date)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, bar)
}

type barRequest struct {
	Symbol string   `json:"symbol"`
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *int64   `json:"volume"`
}

// HandleAddBar records a new price bar
// POST /api/stocks
func (h *Handlers) HandleAddBar(w http.ResponseWriter, r *http.Request) {
	var req barRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}

	bar, err := req.toBar()
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	created, err := h.repo.AddBar(*bar)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, created)
}

// HandleCorrectBar overwrites an existing bar (explicit correction)
// PUT /api/stocks/{symbol}/{date}
func (h *Handlers) HandleCorrectBar(w http.ResponseWriter, r *http.Request) {
	var req barRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}
	req.Symbol = chi.URLParam(r, "symbol")
	req.Date = chi.URLParam(r, "date")

	bar, err := req.toBar()
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	updated, err := h.repo.CorrectBar(*bar)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, updated)
}

// HandleDeleteBar removes a price bar
// DELETE /api/stocks/{symbol}/{date}
func (h *Handlers) HandleDeleteBar(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	date := chi.URLParam(r, "date")

	if err := h.repo.DeleteBar(symbol, date); err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "price bar deleted",
		"symbol":  strings.ToUpper(symbol),
		"date":    date,
	})
}

func (req *barRequest) toBar() (*PriceBar, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, domain.Validation("symbol is required")
	}
	if _, err := domain.ParseDate(req.Date); err != nil {
		return nil, err
	}
	if req.Open == nil || req.High == nil || req.Low == nil || req.Close == nil || req.Volume == nil {
		return nil, domain.Validation("open, high, low, close and volume are required")
	}
	if *req.Open <= 0 || *req.High <= 0 || *req.Low <= 0 || *req.Close <= 0 || *req.Volume < 0 {
		return nil, domain.Validation("prices must be positive and volume non-negative")
	}

	return &PriceBar{
		Symbol: req.Symbol,
		Date:   req.Date,
		Open:   *req.Open,
		High:   *req.High,
		Low:    *req.Low,
		Close:  *req.Close,
		Volume: *req.Volume,
	}, nil
}
