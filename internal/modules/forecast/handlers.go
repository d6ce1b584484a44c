package forecast

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/httputil"
)

// Handlers exposes the forecast endpoint. It is mounted under the stocks
// subrouter by the server.
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates forecast HTTP handlers.
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("component", "forecast_handlers").Logger(),
	}
}

// HandleForecast handles GET /stocks/{symbol}/forecast
func (h *Handlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.Predict(chi.URLParam(r, "symbol"))
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, fc)
}
