package portfolio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/auth"
)

func setupRouter(t *testing.T) (*chi.Mux, *Service) {
	svc, _, _, db := setupService(t, "0", nil)

	handlers := NewHandlers(
		NewRepository(db, zerolog.Nop()),
		NewHoldingRepository(db, zerolog.Nop()),
		NewJournalRepository(db, zerolog.Nop()),
		svc,
		zerolog.Nop(),
	)

	router := chi.NewRouter()
	router.Route("/portfolios", func(r chi.Router) {
		r.Use(auth.Middleware)
		handlers.RegisterRoutes(r)
	})
	return router, svc
}

func doJSON(t *testing.T, router *chi.Mux, method, path, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID > 0 {
		req.Header.Set(auth.Header, strconv.FormatInt(userID, 10))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleCreateAndGet(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/portfolios", `{"name": "Growth", "cash_balance": "2500.75"}`, 5)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Portfolio Portfolio `json:"portfolio"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "Growth", created.Portfolio.Name)
	assert.Equal(t, "2500.75", created.Portfolio.CashBalance.String())

	w = doJSON(t, router, "GET", "/portfolios/"+strconv.FormatInt(created.Portfolio.ID, 10), "", 5)
	assert.Equal(t, http.StatusOK, w.Code)

	// Another user cannot see it
	w = doJSON(t, router, "GET", "/portfolios/"+strconv.FormatInt(created.Portfolio.ID, 10), "", 6)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCreate_Invalid(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/portfolios", `{"name": "  "}`, 5)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/portfolios", `{"name": "X", "cash_balance": "-1"}`, 5)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/portfolios", `not json`, 5)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDepositWithdrawOverHTTP(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/portfolios", `{"name": "Cash", "cash_balance": "100"}`, 5)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Portfolio Portfolio `json:"portfolio"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	base := "/portfolios/" + strconv.FormatInt(created.Portfolio.ID, 10)

	w = doJSON(t, router, "POST", base+"/deposit", `{"amount": "50"}`, 5)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", base+"/withdraw", `{"amount": "200"}`, 5)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not enough funds")

	w = doJSON(t, router, "GET", base+"/cash", "", 5)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cash": "150"}`, w.Body.String())
}

func TestHandlers_RequireIdentity(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "GET", "/portfolios", "", 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error": "not logged in"}`, w.Body.String())
}

func TestHandleGet_BadID(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "GET", "/portfolios/abc", "", 5)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
