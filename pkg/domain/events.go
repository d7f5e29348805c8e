package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition      EventType = "transition"
	EventRequestStart    EventType = "request_start"
	EventRequestDone     EventType = "request_done"
	EventStaleResponse   EventType = "stale_response"
	EventArtifactCreated EventType = "artifact_created"
	EventArtifactRevoked EventType = "artifact_revoked"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
}

// TransitionEvent is emitted after every accepted intent or completion.
type TransitionEvent struct {
	EventBase
	Intent string `json:"intent"`
	From   Step   `json:"from"`
	To     Step   `json:"to"`
}

// RequestEvent describes a format request. Err and Duration are set on completion.
type RequestEvent struct {
	EventBase
	Template TemplateID    `json:"template"`
	FileName string        `json:"file_name"`
	FileSize int64         `json:"file_size"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ArtifactEvent describes an artifact handle being created or revoked.
type ArtifactEvent struct {
	EventBase
	Handle string `json:"handle"`
	Size   int64  `json:"size,omitempty"`
	Err    error  `json:"-"`
}

// LifecycleHooks defines callbacks for workflow observability.
type LifecycleHooks struct {
	OnTransition      func(context.Context, *TransitionEvent)
	OnRequestStart    func(context.Context, *RequestEvent)
	OnRequestDone     func(context.Context, *RequestEvent)
	OnStaleResponse   func(context.Context, *RequestEvent)
	OnArtifactCreated func(context.Context, *ArtifactEvent)
	OnArtifactRevoked func(context.Context, *ArtifactEvent)
}
