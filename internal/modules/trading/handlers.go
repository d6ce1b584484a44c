package trading

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/httputil"
)

// Handlers contains HTTP handlers for order execution
type Handlers struct {
	executor *Executor
	log      zerolog.Logger
}

// NewHandlers creates new trading handlers
func NewHandlers(executor *Executor, log zerolog.Logger) *Handlers {
	return &Handlers{
		executor: executor,
		log:      log.With().Str("handler", "trading").Logger(),
	}
}

// RegisterRoutes registers the order routes on the trades subrouter
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/buy", h.HandleBuy)
	r.Post("/sell", h.HandleSell)
}

// HandleBuy executes a buy order
// POST /api/trades/buy
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.executor.Buy)
}

// HandleSell executes a sell order
// POST /api/trades/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, h.executor.Sell)
}

func (h *Handlers) handleOrder(
	w http.ResponseWriter,
	r *http.Request,
	execute func(userID int64, order Order) (*Result, error),
) {
	userID, _ := auth.UserID(r.Context())

	var order Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}
	if order.PortfolioID <= 0 || order.Symbol == "" {
		httputil.Error(w, h.log, domain.Validation("portfolio_id and symbol are required"))
		return
	}

	result, err := execute(userID, order)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
