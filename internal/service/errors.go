// Package service provides the session lifecycle and economy operations.
package service

import (
	"errors"
	"fmt"

	"player-session/internal/model"
)

// Service errors.
var (
	// ErrStorageUnavailable is returned when durable storage could not serve a lifecycle step.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// WriteBackError reports a session whose final state could not be written.
// The session is already gone from the cache; Snapshot holds the values
// that must be passed to Flush to retry.
type WriteBackError struct {
	Snapshot model.Snapshot
	Err      error
}

func (e *WriteBackError) Error() string {
	return fmt.Sprintf("failed to write back session of %s: %v: %v", e.Snapshot.ID, ErrStorageUnavailable, e.Err)
}

// Unwrap exposes both ErrStorageUnavailable and the storage error.
func (e *WriteBackError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}
