package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownTemplate is returned when user input does not name a known template.
var ErrUnknownTemplate = errors.New("unknown template")

// ErrTransitionNotAllowed is returned when an intent is not valid in the current step.
var ErrTransitionNotAllowed = errors.New("transition not allowed")

// ErrArtifactNotFound is returned when an artifact handle is unknown, expired or revoked.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned when an intent is sent to a closed session.
var ErrSessionClosed = errors.New("session closed")

// RejectionError is a local validation failure. Reason is shown to the user as-is.
type RejectionError struct {
	File   string
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// APIError is a failed format request. StatusCode is 0 for transport failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// UserMessage returns the text shown in the Result view.
// APIError messages are surfaced without the status suffix.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}
