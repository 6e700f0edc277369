package reporting

import (
	"context"
	"errors"
	"time"

	"hangup-attribution/internal/audit"
	"hangup-attribution/internal/hangupby"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations must enforce workspace filtering and read the append-only audit log.
type Repository interface {
	ListAttributions(ctx context.Context, workspaceSID string, from, to time.Time) ([]audit.Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) HangUpBySummary(ctx context.Context, req HangUpByRequest) (HangUpBySummary, error) {
	if req.WorkspaceSID == "" {
		return HangUpBySummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return HangUpBySummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return HangUpBySummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListAttributions(ctx, req.WorkspaceSID, req.Range.From, req.Range.To)
	if err != nil {
		return HangUpBySummary{}, err
	}

	out := HangUpBySummary{
		WorkspaceSID: req.WorkspaceSID,
		Range:        req.Range,
		ByValue:      map[hangupby.Value]int{},
	}
	// A sid is evaluated once; keep the first record if an event was written twice.
	seen := make(map[string]struct{}, len(rows))
	for _, e := range rows {
		if e.SID != "" {
			if _, dup := seen[e.SID]; dup {
				continue
			}
			seen[e.SID] = struct{}{}
		}
		out.Total++
		out.ByValue[e.HangUpBy]++
		if e.HangUpBy == hangupby.Customer {
			out.CustomerInitiated++
		}
		if !e.Persisted {
			out.Unpersisted++
		}
	}
	if out.Total > 0 {
		out.CustomerShare = float64(out.CustomerInitiated) / float64(out.Total)
	}
	return out, nil
}
