package hangupby

import (
	"context"
	"errors"
	"fmt"
)

// Action is a worker-driven call event reported by the desktop before it happens.
type Action string

const (
	ActionHangup               Action = "hangup"
	ActionKick                 Action = "kick"
	ActionColdTransfer         Action = "cold_transfer"
	ActionWarmTransfer         Action = "warm_transfer"
	ActionExternalColdTransfer Action = "external_cold_transfer"
	ActionExternalWarmTransfer Action = "external_warm_transfer"
	ActionConsult              Action = "consult"
)

var ErrInvalidAction = errors.New("hangupby: invalid action")

// ActionRequest is one worker action against a task.
type ActionRequest struct {
	Action Action `json:"action"`

	// Destination is the external transfer target, when one has been dialed.
	Destination string `json:"destination,omitempty"`
}

// Recorder writes worker actions into the Store ahead of wrap-up.
type Recorder struct {
	Store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{Store: store}
}

// Record stores the attribution implied by req and returns it.
func (r *Recorder) Record(ctx context.Context, sid string, req ActionRequest) (Value, error) {
	if sid == "" {
		return "", ErrInvalidTask
	}
	if r.Store == nil {
		return "", ErrNotConfigured
	}

	var next Value
	switch req.Action {
	case ActionColdTransfer:
		next = ColdTransfer
	case ActionWarmTransfer:
		next = WarmTransfer
	case ActionExternalColdTransfer:
		next = ExternalColdTransfer
	case ActionExternalWarmTransfer:
		next = ExternalWarmTransfer
	case ActionConsult:
		next = Consult
	case ActionHangup, ActionKick:
		current, _, err := r.Store.Get(ctx, sid)
		if err != nil {
			return "", err
		}
		next = leaveCall(current, req.Destination)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	if err := r.Store.Set(ctx, sid, next); err != nil {
		return "", err
	}
	return next, nil
}

// leaveCall resolves the worker leaving the conference given what was in progress.
func leaveCall(current Value, destination string) Value {
	switch current {
	case Consult:
		// Leaving while a consulted worker is on the line hands the call over.
		return WarmTransfer
	case ExternalWarmTransfer:
		if destination != "" {
			return CompletedExternalWarmTransfer
		}
		return ExternalWarmTransfer
	case WarmTransfer:
		return WarmTransfer
	default:
		return Agent
	}
}
