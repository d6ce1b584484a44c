package portfolio

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/httputil"
)

// Handlers contains HTTP handlers for the portfolio API
type Handlers struct {
	repo     *Repository
	holdings *HoldingRepository
	journal  *JournalRepository
	service  *Service
	log      zerolog.Logger
}

// NewHandlers creates new portfolio handlers
func NewHandlers(
	repo *Repository,
	holdings *HoldingRepository,
	journal *JournalRepository,
	service *Service,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		repo:     repo,
		holdings: holdings,
		journal:  journal,
		service:  service,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers the portfolio routes on the portfolios subrouter
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	r.Get("/{id}/cash", h.HandleGetCash)
	r.Post("/{id}/deposit", h.HandleDeposit)
	r.Post("/{id}/withdraw", h.HandleWithdraw)
	r.Get("/{id}/transactions", h.HandleGetTransactions)
	r.Get("/{id}/holdings", h.HandleGetHoldings)
	r.Get("/{id}/value", h.HandleGetValue)
	r.Get("/{id}/snapshots", h.HandleGetSnapshots)
}

// HandleList returns all portfolios of the authenticated user
// GET /api/portfolios
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	portfolios, err := h.repo.ListByUser(userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if portfolios == nil {
		portfolios = []Portfolio{}
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"portfolios": portfolios})
}

// HandleCreate creates a new portfolio
// POST /api/portfolios
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req struct {
		Name        string          `json:"name"`
		CashBalance decimal.Decimal `json:"cash_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.Error(w, h.log, domain.Validation("name is required"))
		return
	}
	if req.CashBalance.IsNegative() {
		httputil.Error(w, h.log, domain.Validation("cash balance must not be negative"))
		return
	}

	portfolio, err := h.repo.Create(userID, req.Name, req.CashBalance)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]interface{}{"portfolio": portfolio})
}

// HandleGet returns one owned portfolio
// GET /api/portfolios/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	portfolio, err := h.repo.GetOwned(portfolioID, userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"portfolio": portfolio})
}

// HandleUpdate renames a portfolio or overwrites its balance
// PUT /api/portfolios/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	var req struct {
		Name        *string          `json:"name"`
		CashBalance *decimal.Decimal `json:"cash_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}
	if req.CashBalance != nil && req.CashBalance.IsNegative() {
		httputil.Error(w, h.log, domain.Validation("cash balance must not be negative"))
		return
	}

	portfolio, err := h.repo.Update(portfolioID, userID, req.Name, req.CashBalance)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"portfolio": portfolio})
}

// HandleDelete removes a portfolio and everything it owns
// DELETE /api/portfolios/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	if err := h.repo.Delete(portfolioID, userID); err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"id": portfolioID})
}

// HandleGetCash returns the cash balance
// GET /api/portfolios/{id}/cash
func (h *Handlers) HandleGetCash(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	cash, err := h.repo.GetCash(portfolioID, userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"cash": cash})
}

// HandleDeposit adds cash
// POST /api/portfolios/{id}/deposit
func (h *Handlers) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleCashMovement(w, r, h.service.Deposit)
}

// HandleWithdraw removes cash
// POST /api/portfolios/{id}/withdraw
func (h *Handlers) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleCashMovement(w, r, h.service.Withdraw)
}

func (h *Handlers) handleCashMovement(
	w http.ResponseWriter,
	r *http.Request,
	move func(portfolioID, userID int64, amount decimal.Decimal) (*Portfolio, error),
) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, h.log, domain.Validation("invalid JSON body"))
		return
	}

	portfolio, err := move(portfolioID, userID, req.Amount)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"portfolio": portfolio})
}

// HandleGetTransactions returns the journal of a portfolio
// GET /api/portfolios/{id}/transactions
func (h *Handlers) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if _, err := h.repo.GetOwned(portfolioID, userID); err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	records, err := h.journal.ListByPortfolio(portfolioID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if records == nil {
		records = []TransactionRecord{}
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"transactions": records})
}

// HandleGetHoldings returns holdings with market values
// GET /api/portfolios/{id}/holdings
func (h *Handlers) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	values, err := h.service.HoldingsValue(portfolioID, userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"holdings": values})
}

// HandleGetValue returns total portfolio value
// GET /api/portfolios/{id}/value
func (h *Handlers) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	value, err := h.service.Value(portfolioID, userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, value)
}

// HandleGetSnapshots returns recent valuation snapshots
// GET /api/portfolios/{id}/snapshots?limit=90
func (h *Handlers) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	portfolioID, err := parseID(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	limit := 90
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snapshots, err := h.service.Snapshots(portfolioID, userID, limit)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	httputil.JSON(w, http.StatusOK, map[string]interface{}{"snapshots": snapshots})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid portfolio id")
	}
	return id, nil
}
