package hangupby

import (
	"context"
	"errors"
	"log/slog"

	"hangup-attribution/pkg/logger"
)

// ConferenceQuery answers questions about the history of a task's conference.
type ConferenceQuery interface {
	// HasAnotherWorkerJoined is answered from the snapshot; it must not block.
	HasAnotherWorkerJoined(task Task) bool
	// HasCustomerJoined may query live participant state.
	HasCustomerJoined(ctx context.Context, task Task) (bool, error)
}

// AttributeSink merges a partial attribute object onto the task's permanent record.
type AttributeSink interface {
	UpdateAttributes(ctx context.Context, taskSID string, patch map[string]any) error
}

var (
	ErrInvalidTask   = errors.New("hangupby: task sid required")
	ErrNotConfigured = errors.New("hangupby: engine dependency not configured")
)

type SkipReason string

const (
	SkipNoConference SkipReason = "no_conference"
	SkipDuplicate    SkipReason = "duplicate"
	SkipSuperseded   SkipReason = "superseded"
)

const fallbackClaimPrefix = "fallback:"

// Outcome describes one evaluation. Skipped is empty when the engine ran to the end.
type Outcome struct {
	SID     string     `json:"sid"`
	TaskSID string     `json:"task_sid"`
	Prior   Value      `json:"prior,omitempty"`
	Value   Value      `json:"hang_up_by,omitempty"`
	Skipped SkipReason `json:"skipped,omitempty"`

	// Persisted is false when the sink rejected the update.
	Persisted bool `json:"persisted"`
}

// Engine decides who ended a call when its task enters wrap-up.
//
// Order of evaluation:
//  1. Consult override (incoming transfer + another worker joined)
//  2. Default to Customer when nothing was recorded
//  3. Refine (see Refine)
//  4. Persist to the sink, best-effort
//
// Evaluate must be called at most once per task wrap-up. When Dedup is set,
// redelivered wrap-ups for the same sid are skipped. EvaluateFallback runs
// under a separate claim and defers to Evaluate.
type Engine struct {
	Store      Store
	Conference ConferenceQuery
	Sink       AttributeSink

	// Dedup is optional.
	Dedup Deduper
}

func NewEngine(store Store, conference ConferenceQuery, sink AttributeSink) (*Engine, error) {
	if store == nil || conference == nil || sink == nil {
		return nil, ErrNotConfigured
	}
	return &Engine{Store: store, Conference: conference, Sink: sink}, nil
}

// Evaluate runs the authoritative evaluation for a desktop-reported wrap-up.
// It never fails: collaborator errors are logged and absorbed.
func (e *Engine) Evaluate(ctx context.Context, task Task) Outcome {
	return e.evaluate(ctx, task, false)
}

// EvaluateFallback evaluates a wrap-up reported without participant history
// (the TaskRouter event callback). It yields to a desktop wrap-up that already
// claimed the task and never revises the store, so a desktop wrap-up arriving
// later still starts from the worker-recorded value and overwrites the result.
func (e *Engine) EvaluateFallback(ctx context.Context, task Task) Outcome {
	return e.evaluate(ctx, task, true)
}

func (e *Engine) evaluate(ctx context.Context, task Task, fallback bool) Outcome {
	out := Outcome{SID: task.SID, TaskSID: task.RecordSID()}
	log := logger.Component(ctx, "hangupby").With("sid", task.SID, "task_sid", out.TaskSID, "fallback", fallback)

	if !task.IsCall() {
		out.Skipped = SkipNoConference
		return out
	}

	if e.Dedup != nil {
		if reason := e.claim(ctx, log, task.SID, fallback); reason != "" {
			out.Skipped = reason
			return out
		}
	}

	revise := func(v Value) Value {
		if fallback {
			return v
		}
		return e.revise(ctx, log, task.SID, v)
	}

	current := e.load(ctx, log, task.SID)
	out.Prior = current

	if current != Consult && task.IncomingTransfer != nil && e.Conference.HasAnotherWorkerJoined(task) {
		current = revise(Consult)
	}

	if current == "" {
		// A worker hang-up or transfer would have been recorded before wrap-up.
		current = revise(Customer)
	}

	if NeedsCustomerLookup(current) {
		log.Debug("checking customer leg", "hang_up_by", current)
	}
	refined := Refine(current, func() bool { return e.customerJoined(ctx, log, task) })
	if refined != current {
		current = revise(refined)
	}

	out.Value = current
	out.Persisted = e.persist(ctx, log, out.TaskSID, current)
	return out
}

// claim returns a skip reason, or "" when evaluation should proceed.
// Desktop wrap-ups claim sid; fallbacks check that claim and then claim their own key.
func (e *Engine) claim(ctx context.Context, log *slog.Logger, sid string, fallback bool) SkipReason {
	key := sid
	if fallback {
		held, err := e.Dedup.Held(ctx, sid)
		switch {
		case err != nil:
			log.Warn("wrap-up claim lookup failed, evaluating anyway", "err", err)
		case held:
			log.Info("desktop wrap-up already evaluated, event ignored")
			return SkipSuperseded
		}
		key = fallbackClaimPrefix + sid
	}

	claimed, err := e.Dedup.Claim(ctx, key)
	switch {
	case err != nil:
		log.Warn("wrap-up claim failed, evaluating anyway", "err", err)
	case !claimed:
		log.Info("duplicate wrap-up ignored")
		return SkipDuplicate
	}
	return ""
}

func (e *Engine) load(ctx context.Context, log *slog.Logger, sid string) Value {
	v, ok, err := e.Store.Get(ctx, sid)
	if err != nil {
		log.Warn("attribution lookup failed, treating as unset", "err", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (e *Engine) revise(ctx context.Context, log *slog.Logger, sid string, v Value) Value {
	if err := e.Store.Set(ctx, sid, v); err != nil {
		log.Warn("attribution store write failed", "hang_up_by", v, "err", err)
	}
	return v
}

// customerJoined treats a failed lookup as "not confirmed present".
func (e *Engine) customerJoined(ctx context.Context, log *slog.Logger, task Task) bool {
	joined, err := e.Conference.HasCustomerJoined(ctx, task)
	if err != nil {
		log.Warn("customer presence lookup failed, assuming absent", "err", err)
		return false
	}
	return joined
}

func (e *Engine) persist(ctx context.Context, log *slog.Logger, taskSID string, v Value) bool {
	patch := Patch(v)
	if err := e.Sink.UpdateAttributes(ctx, taskSID, patch); err != nil {
		log.Error("failed to set conversation attributes", "attributes", patch, "err", err)
		return false
	}
	log.Debug("set conversation attributes", "attributes", patch)
	return true
}

// Patch builds the nested attribute payload for v.
func Patch(v Value) map[string]any {
	return map[string]any{
		"conversations": map[string]any{
			"hang_up_by": string(v),
		},
	}
}
