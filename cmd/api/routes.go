package main

import (
	"net/http"

	"hangup-attribution/internal/auth"
	"hangup-attribution/internal/httpapi"
	"hangup-attribution/internal/rbac"
	"hangup-attribution/internal/telephony"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	auth     *auth.Manager
	apiKey   string
	handlers httpapi.Handlers
	webhook  telephony.TaskRouterWebhookHandler

	// workspaceSID pins bearer tokens to the configured TaskRouter workspace.
	workspaceSID string
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", h.Ready)

	// Provider webhooks, authenticated by X-Twilio-Signature.
	r.POST("/webhooks/taskrouter/events", d.webhook.HandleEvent)

	// Token issuance for plugin sessions, guarded by the service key.
	r.POST("/v1/auth/token", auth.RequireAPIKey(d.apiKey), h.IssueToken)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.auth), rbac.RequireWorkspaceSID(d.workspaceSID))
	{
		v1.GET("/me", func(c *gin.Context) {
			wk, _ := auth.WorkerSID(c.Request.Context())
			ws, _ := auth.WorkspaceSID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"worker_sid": wk, "workspace_sid": ws, "role": role})
		})

		// TASK routes: the desktop reports worker actions and wrap-ups.
		tasks := v1.Group("/tasks")
		tasks.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleAgent, rbac.RoleSupervisor)...)
		{
			tasks.POST("/:sid/actions", h.RecordAction)
			tasks.GET("/:sid/hang-up-by", h.GetHangUpBy)
			tasks.POST("/:sid/wrapup", h.Wrapup)
		}

		// REPORT routes
		reports := v1.Group("/reports")
		reports.Use(httpapi.RequireWorkspaceAndAnyRole(rbac.RoleSupervisor)...)
		{
			reports.GET("/hang-up-by", h.HangUpBySummary)
		}
	}
}
