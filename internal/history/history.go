// Package history exports identity-protocol lifecycle events to external
// audit and analytics systems. Recording is best-effort: a failing sink never
// blocks a verification or a spawn.
package history

import (
	"context"
	"time"
)

// EventType is the kind of lifecycle event.
type EventType string

const (
	// EventSpawn is recorded when the client launches a new worker.
	EventSpawn EventType = "spawn"
	// EventVerify is recorded for every identity verification.
	EventVerify EventType = "verify"
	// EventShutdown is recorded when a worker is asked to stop.
	EventShutdown EventType = "shutdown"
)

// Record captures the worker fingerprint an event refers to.
type Record struct {
	Workspace  string `json:"workspace"`
	PID        int    `json:"pid"`
	StartToken int64  `json:"start_token"`
	// Outcome holds the verification verdict for EventVerify, empty otherwise.
	Outcome string `json:"outcome,omitempty"`
}

// Event is one exported lifecycle event.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
