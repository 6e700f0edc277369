package telephony

import (
	"context"
	"time"
)

// Provider is the contact-center platform surface the attribution service needs.
//
// Rules:
// - No provider REST calls outside telephony adapters.
// - Keep request/response types provider-agnostic; raw payloads stay in adapters.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	ListConferenceParticipants(ctx context.Context, conferenceSID string) ([]ConferenceParticipant, error)

	FetchTask(ctx context.Context, taskSID string) (TaskRecord, error)
	UpdateTaskAttributes(ctx context.Context, req UpdateTaskAttributesRequest) error
}

// ConferenceParticipant is one live leg of a conference.
type ConferenceParticipant struct {
	CallSID string `json:"call_sid"`
	Label   string `json:"label,omitempty"`
	Status  string `json:"status,omitempty"`
	Hold    bool   `json:"hold"`
	Muted   bool   `json:"muted"`
}

// TaskRecord is the permanent task record as stored by the platform.
type TaskRecord struct {
	SID          string `json:"sid"`
	WorkspaceSID string `json:"workspace_sid"`

	// Attributes is the raw JSON object string.
	Attributes string `json:"attributes"`

	// Revision is the record's ETag, used for optimistic concurrency on update.
	Revision string `json:"-"`

	UpdatedAt time.Time `json:"-"`
}

type UpdateTaskAttributesRequest struct {
	TaskSID string

	// Attributes replaces the whole attribute object; callers merge first.
	Attributes string

	// IfMatch is optional. When set, the update fails if the record changed.
	IfMatch string
}
