package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// JSON writes a JSON response with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Ignore encode error - already committed response
}

// Error maps a domain error to its HTTP status and writes {"error": ...}.
// Validation and conflict messages go to the caller verbatim; internal
// failures are logged and masked.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := statusFor(domain.KindOf(err))

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		message = "internal server error"
	}

	JSON(w, status, map[string]string{"error": message})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
