package audit

import (
	"time"

	"hangup-attribution/internal/hangupby"
)

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_sid is required for tenancy isolation.
// - audit is best-effort; never block a wrap-up on audit failures.
type Event struct {
	ID           string `json:"id" db:"id"`
	WorkspaceSID string `json:"workspace_sid" db:"workspace_sid"`

	Type EventType `json:"type" db:"type"`

	// ActorWorkerSID is the worker whose session caused the event, when known.
	ActorWorkerSID string `json:"actor_worker_sid,omitempty" db:"actor_worker_sid"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP, when the event came through the API.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Source is the intake the event came through (plugin, taskrouter).
	Source string `json:"source,omitempty" db:"source"`

	TaskSID   string         `json:"task_sid,omitempty" db:"task_sid"`
	SID       string         `json:"sid,omitempty" db:"sid"`
	HangUpBy  hangupby.Value `json:"hang_up_by,omitempty" db:"hang_up_by"`
	Prior     hangupby.Value `json:"prior,omitempty" db:"prior"`
	Persisted bool           `json:"persisted" db:"persisted"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAttribution EventType = "hang_up_attribution"
	EventTypeAction      EventType = "worker_action"
)
