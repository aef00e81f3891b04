package history

import (
	"errors"
	"fmt"
)

// ErrDisabled is returned by a store created without a document id.
var ErrDisabled = errors.New("position sync disabled: no document id")

// ErrNoSavedPosition indicates the server has no position for the document yet.
var ErrNoSavedPosition = errors.New("no saved position")

// StatusError is an application-level failure: the server answered with an
// unexpected status.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s history failed. reason: %s (HTTP %d): %s", e.Op, e.Status, e.StatusCode, e.Message)
}
