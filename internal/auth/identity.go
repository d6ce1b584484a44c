package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aristath/stockfolio/internal/httputil"
)

// The engine never authenticates: an upstream identity service terminates the
// session and forwards the authenticated user in the X-User-ID header. Only
// ownership comparison happens here.

type contextKey int

const userIDKey contextKey = iota

// Header carries the authenticated user id set by the identity collaborator
const Header = "X-User-ID"

// Middleware extracts the authenticated user and stores it on the request
// context. Requests without a valid identity are rejected.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(Header)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if raw == "" || err != nil || userID <= 0 {
			httputil.JSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user from the request context
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
