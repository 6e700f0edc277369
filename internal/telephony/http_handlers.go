package telephony

import (
	"context"
	"net/http"

	"hangup-attribution/internal/hangupby"
	"hangup-attribution/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TaskRouterWebhookHandler turns workspace event callbacks into wrap-up evaluations.
//
// No business logic here: it validates, converts and hands the snapshot to OnWrapup.
type TaskRouterWebhookHandler struct {
	// AuthToken validates X-Twilio-Signature. Empty disables validation (local only).
	AuthToken string

	// PublicURL is the externally visible callback URL Twilio signs.
	PublicURL string

	// WorkspaceSID drops events from other workspaces when set.
	WorkspaceSID string

	OnWrapup func(ctx context.Context, task hangupby.Task)
}

func (h TaskRouterWebhookHandler) HandleEvent(c *gin.Context) {
	log := logger.FromGin(c)

	if h.OnWrapup == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "wrap-up handler not configured"})
		return
	}

	form, err := ParseTaskRouterEvent(c.Request)
	if err != nil {
		log.Warn("taskrouter webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	if h.AuthToken != "" {
		u := h.PublicURL
		if u == "" {
			u = requestURL(c.Request)
		}
		if !ValidateSignature(h.AuthToken, u, c.Request.PostForm, c.GetHeader("X-Twilio-Signature")) {
			log.Warn("taskrouter webhook signature rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
	}

	// TaskRouter expects a fast 2xx for every event, including ones we ignore.
	if form.EventType != EventReservationWrapup {
		c.Status(http.StatusNoContent)
		return
	}

	if h.WorkspaceSID != "" && form.WorkspaceSid != h.WorkspaceSID {
		log.Warn("taskrouter event for another workspace", "workspace_sid", form.WorkspaceSid)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "workspace not served"})
		return
	}

	task, err := form.ToTask()
	if err != nil {
		log.Warn("taskrouter wrap-up conversion failed", "task_sid", form.TaskSid, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid task attributes"})
		return
	}
	if task.SID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "resource sid required"})
		return
	}

	h.OnWrapup(logger.With(c.Request.Context(), log), task)
	c.Status(http.StatusAccepted)
}

func requestURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
