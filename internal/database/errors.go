package database

import (
	"context"
	"errors"
	"strings"
)

// IsBusy reports whether the error is SQLite lock contention. The modernc
// driver surfaces SQLITE_BUSY / SQLITE_LOCKED as text, so this matches on the
// canonical messages.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// IsTimeout reports whether the error is a cancelled or timed-out storage call
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
