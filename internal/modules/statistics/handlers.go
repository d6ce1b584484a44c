package statistics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/auth"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/httputil"
)

// Handlers exposes the statistics endpoints. They are mounted under the
// portfolios subrouter by the server.
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates statistics HTTP handlers.
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("component", "statistics_handlers").Logger(),
	}
}

// HandleStatistics handles GET /portfolios/{id}/statistics?start=&end=
func (h *Handlers) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	portfolioID, userID, startDate, endDate, err := h.parseRequest(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	report, err := h.service.Statistics(portfolioID, userID, startDate, endDate)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, report)
}

// HandleCorrelations handles GET /portfolios/{id}/correlations?start=&end=
func (h *Handlers) HandleCorrelations(w http.ResponseWriter, r *http.Request) {
	portfolioID, userID, startDate, endDate, err := h.parseRequest(r)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	matrix, err := h.service.Correlations(portfolioID, userID, startDate, endDate)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, matrix)
}

func (h *Handlers) parseRequest(r *http.Request) (portfolioID, userID int64, startDate, endDate string, err error) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		return 0, 0, "", "", domain.Validation("missing user identity")
	}
	portfolioID, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || portfolioID <= 0 {
		return 0, 0, "", "", domain.Validation("invalid portfolio id")
	}
	startDate = r.URL.Query().Get("start")
	endDate = r.URL.Query().Get("end")
	if startDate == "" || endDate == "" {
		return 0, 0, "", "", domain.Validation("start and end query parameters are required")
	}
	return portfolioID, userID, startDate, endDate, nil
}
