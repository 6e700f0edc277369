package audit

import (
	"context"
	"errors"
	"time"

	"hangup-attribution/internal/hangupby"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceSID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// Actor identifies who triggered an audited operation.
type Actor struct {
	WorkspaceSID string
	WorkerSID    string
	Role         string
	IPAddress    string
	Source       string
}

// LogAttribution records the final value of one wrap-up evaluation.
// Skipped outcomes are not recorded.
func (s *Service) LogAttribution(ctx context.Context, actor Actor, out hangupby.Outcome) error {
	if out.Skipped != "" {
		return nil
	}
	msg := "hang_up_by persisted"
	if !out.Persisted {
		msg = "hang_up_by not persisted"
	}
	return s.Append(ctx, Event{
		WorkspaceSID:   actor.WorkspaceSID,
		Type:           EventTypeAttribution,
		ActorWorkerSID: actor.WorkerSID,
		ActorRole:      actor.Role,
		IPAddress:      actor.IPAddress,
		Source:         actor.Source,
		TaskSID:        out.TaskSID,
		SID:            out.SID,
		HangUpBy:       out.Value,
		Prior:          out.Prior,
		Persisted:      out.Persisted,
		Message:        msg,
	})
}

// LogAction records a worker action and the value it stored.
func (s *Service) LogAction(ctx context.Context, actor Actor, sid string, action hangupby.Action, stored hangupby.Value) error {
	return s.Append(ctx, Event{
		WorkspaceSID:   actor.WorkspaceSID,
		Type:           EventTypeAction,
		ActorWorkerSID: actor.WorkerSID,
		ActorRole:      actor.Role,
		IPAddress:      actor.IPAddress,
		Source:         actor.Source,
		SID:            sid,
		HangUpBy:       stored,
		Message:        string(action),
	})
}
