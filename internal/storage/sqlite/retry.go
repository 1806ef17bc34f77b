package sqlite

import (
	"strings"
	"time"
)

const (
	busyAttempts = 5
	busyBackoff  = 10 * time.Millisecond
)

// retryOnBusy runs fn, retrying with exponential backoff while SQLite
// reports the database as locked.
func retryOnBusy(fn func() error) error {
	var err error
	delay := busyBackoff
	for attempt := 0; attempt < busyAttempts; attempt++ {
		if err = fn(); err == nil || !isSQLiteBusy(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
