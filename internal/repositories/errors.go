// Package repositories implements persistence for stories and responses on
// top of the embedded database.
package repositories

import (
	"context"
	"fmt"

	"github.com/beforeigo/beforeigo/internal/errors"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.NewSentinel("not found")

	// ErrRetriable marks a write failure that is safe to retry with the
	// same input, for example a busy database or an expired deadline.
	ErrRetriable = errors.NewSentinel("retriable write failure")
)

// classifyWriteError tags transient failures with ErrRetriable so callers can
// decide between retrying and surfacing a permanent error.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %w", ErrRetriable, err)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrRetriable, err)
	}
	return err
}
