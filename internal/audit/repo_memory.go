package audit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryRepo is an in-memory append-only repository for tests and single-node
// deployments without Postgres. It enforces workspace isolation on reads.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ListAttributions returns attribution events in [from, to) for one workspace.
func (r *MemoryRepo) ListAttributions(ctx context.Context, workspaceSID string, from, to time.Time) ([]Event, error) {
	if workspaceSID == "" {
		return nil, errors.New("workspace_sid required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.WorkspaceSID != workspaceSID || e.Type != EventTypeAttribution {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
