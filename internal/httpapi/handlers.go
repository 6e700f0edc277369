package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hangup-attribution/internal/audit"
	"hangup-attribution/internal/auth"
	"hangup-attribution/internal/hangupby"
	"hangup-attribution/internal/rbac"
	"hangup-attribution/internal/reporting"
	"hangup-attribution/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Evaluator interface {
	Evaluate(ctx context.Context, task hangupby.Task) hangupby.Outcome
	EvaluateFallback(ctx context.Context, task hangupby.Task) hangupby.Outcome
}

type ActionRecorder interface {
	Record(ctx context.Context, sid string, req hangupby.ActionRequest) (hangupby.Value, error)
}

type Dispatcher interface {
	Submit(name string, fn func())
	SubmitAfter(name string, delay time.Duration, fn func())
}

type Auditor interface {
	LogAttribution(ctx context.Context, actor audit.Actor, out hangupby.Outcome) error
	LogAction(ctx context.Context, actor audit.Actor, sid string, action hangupby.Action, stored hangupby.Value) error
}

type Reports interface {
	HangUpBySummary(ctx context.Context, req reporting.HangUpByRequest) (reporting.HangUpBySummary, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Engine   Evaluator
	Recorder ActionRecorder
	Store    hangupby.Store
	Reports  Reports

	// Dispatch runs wrap-up evaluations off the request path. Nil runs them inline.
	Dispatch Dispatcher
	// Audit is optional; failures are logged and never fail a request.
	Audit Auditor

	// WebhookGrace delays TaskRouter wrap-ups so the desktop's own wrap-up,
	// which carries participant history, is evaluated first.
	WebhookGrace time.Duration

	// WorkspaceSID is the TaskRouter workspace this service writes to.
	// When set, tokens for any other workspace are refused.
	WorkspaceSID string

	// Checks are run by Ready, keyed by dependency name.
	Checks map[string]func(ctx context.Context) error

	Now func() time.Time
}

const (
	SourcePlugin     = "plugin"
	SourceTaskRouter = "taskrouter"
)

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Health ---

func (h Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "dependency", name, "err", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type issueTokenRequest struct {
	WorkerSID    string `json:"worker_sid"`
	WorkspaceSID string `json:"workspace_sid"`
	Role         string `json:"role"`
}

// IssueToken issues a JWT pair for a plugin session. The route is guarded by
// the service API key; the caller vouches for the worker identity.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.WorkerSID == "" || req.WorkspaceSID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "worker_sid, workspace_sid, role required"})
		return
	}
	if !rbac.IsKnownRole(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	if h.WorkspaceSID != "" && req.WorkspaceSID != h.WorkspaceSID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "workspace not served"})
		return
	}
	if rbac.IsHiddenRole(req.Role) {
		logger.FromGin(c).Warn("issuing hidden role token", "worker_sid", req.WorkerSID, "workspace_sid", req.WorkspaceSID)
	}
	pair, err := h.Auth.IssuePair(h.now(), req.WorkerSID, req.WorkspaceSID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Attribution ---

// RecordAction stores the attribution implied by a worker action, ahead of wrap-up.
func (h Handlers) RecordAction(c *gin.Context) {
	if h.Recorder == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recorder not configured"})
		return
	}
	sid := c.Param("sid")
	var req hangupby.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	stored, err := h.Recorder.Record(c.Request.Context(), sid, req)
	switch {
	case errors.Is(err, hangupby.ErrInvalidAction), errors.Is(err, hangupby.ErrInvalidTask):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.FromGin(c).Error("record worker action failed", "sid", sid, "action", req.Action, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "record failed"})
		return
	}

	if h.Audit != nil {
		if err := h.Audit.LogAction(c.Request.Context(), actorFrom(c, SourcePlugin), sid, req.Action, stored); err != nil {
			logger.FromGin(c).Warn("audit worker action failed", "sid", sid, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sid": sid, "hang_up_by": stored})
}

func (h Handlers) GetHangUpBy(c *gin.Context) {
	if h.Store == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store not configured"})
		return
	}
	sid := c.Param("sid")
	v, ok, err := h.Store.Get(c.Request.Context(), sid)
	if err != nil {
		logger.FromGin(c).Error("attribution lookup failed", "sid", sid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no attribution recorded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sid": sid, "hang_up_by": v})
}

// Wrapup accepts the plugin's wrap-up snapshot and evaluates it in the background.
func (h Handlers) Wrapup(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}
	workspaceSID, err := auth.WorkspaceSID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_sid required"})
		return
	}

	var task hangupby.Task
	if err := c.ShouldBindJSON(&task); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sid := c.Param("sid")
	if task.SID == "" {
		task.SID = sid
	}
	if task.SID != sid {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "sid mismatch"})
		return
	}
	if task.WorkspaceSID != "" && task.WorkspaceSID != workspaceSID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "workspace mismatch"})
		return
	}
	task.WorkspaceSID = workspaceSID

	h.EnqueueWrapup(c.Request.Context(), actorFrom(c, SourcePlugin), task)
	c.JSON(http.StatusAccepted, gin.H{"sid": task.SID, "status": "accepted"})
}

// EnqueueWrapup schedules the authoritative evaluation of a desktop wrap-up and audits its outcome.
func (h Handlers) EnqueueWrapup(ctx context.Context, actor audit.Actor, task hangupby.Task) {
	h.enqueue(ctx, actor, task, h.Engine.Evaluate, 0)
}

// OnTaskRouterWrapup evaluates a TaskRouter wrap-up event after WebhookGrace,
// unless the desktop reported the same wrap-up in the meantime.
func (h Handlers) OnTaskRouterWrapup(ctx context.Context, task hangupby.Task) {
	actor := audit.Actor{
		WorkspaceSID: task.WorkspaceSID,
		WorkerSID:    task.WorkerSID,
		Role:         rbac.RoleSystem,
		Source:       SourceTaskRouter,
	}
	h.enqueue(ctx, actor, task, h.Engine.EvaluateFallback, h.WebhookGrace)
}

// enqueue runs one evaluation off the request path. The evaluation outlives the
// request, so only the logger is carried over from ctx.
func (h Handlers) enqueue(ctx context.Context, actor audit.Actor, task hangupby.Task, evaluate func(context.Context, hangupby.Task) hangupby.Outcome, delay time.Duration) {
	log := logger.From(ctx)
	bg := logger.With(context.WithoutCancel(ctx), log)

	run := func() {
		out := evaluate(bg, task)
		log.Info("wrap-up evaluated",
			"sid", out.SID,
			"task_sid", out.TaskSID,
			"source", actor.Source,
			"prior", out.Prior,
			"hang_up_by", out.Value,
			"skipped", out.Skipped,
			"persisted", out.Persisted,
		)
		if h.Audit == nil {
			return
		}
		if err := h.Audit.LogAttribution(bg, actor, out); err != nil {
			log.Warn("audit attribution failed", "sid", out.SID, "err", err)
		}
	}

	switch {
	case h.Dispatch == nil:
		run()
	case delay > 0:
		h.Dispatch.SubmitAfter("wrapup:"+task.SID, delay, run)
	default:
		h.Dispatch.Submit("wrapup:"+task.SID, run)
	}
}

// --- Reporting ---

// HangUpBySummary reports attribution counts for the caller's workspace.
// from/to are RFC 3339; the default window is the last 24 hours.
func (h Handlers) HangUpBySummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	workspaceSID, err := auth.WorkspaceSID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_sid required"})
		return
	}

	to := h.now().UTC()
	from := to.Add(-24 * time.Hour)
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
	}

	out, err := h.Reports.HangUpBySummary(c.Request.Context(), reporting.HangUpByRequest{
		WorkspaceSID: workspaceSID,
		Range:        reporting.TimeRange{From: from, To: to},
	})
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid time range"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("hang-up-by summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func actorFrom(c *gin.Context, source string) audit.Actor {
	ctx := c.Request.Context()
	a := audit.Actor{Source: source, IPAddress: c.ClientIP()}
	a.WorkspaceSID, _ = auth.WorkspaceSID(ctx)
	a.WorkerSID, _ = auth.WorkerSID(ctx)
	a.Role, _ = auth.Role(ctx)
	return a
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
