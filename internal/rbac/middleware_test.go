package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hangup-attribution/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveAs(workspaceSID, role string, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "WK1", workspaceSID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })

	r := gin.New()
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveAs("WS1", RoleAdmin, RequireWorkspace(), RequireAnyRole(RoleSupervisor)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AgentDeniedOnSupervisorRoute(t *testing.T) {
	if code := serveAs("WS1", RoleAgent, RequireWorkspace(), RequireAnyRole(RoleSupervisor)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_HiddenRoleDeniedUnlessAllowed(t *testing.T) {
	if code := serveAs("WS1", RoleSystem, RequireWorkspace(), RequireAnyRole(RoleAgent, RoleSupervisor)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := serveAs("WS1", RoleSystem, RequireWorkspace(), RequireAnyRole(RoleAgent, RoleSystem)); code != 200 {
		t.Fatalf("expected 200 when explicitly allowed, got %d", code)
	}
}

func TestRequireAnyRole_WorkspaceRequired(t *testing.T) {
	if code := serveAs("", RoleAgent, RequireWorkspace(), RequireAnyRole(RoleAgent)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRoleHelpers(t *testing.T) {
	if !IsHiddenRole(RoleSystem) || IsHiddenRole(RoleAgent) {
		t.Fatalf("unexpected hidden role classification")
	}
	if IsKnownRole("owner") || !IsKnownRole(RoleSupervisor) {
		t.Fatalf("unexpected known role classification")
	}
}

func TestRequireWorkspaceSID(t *testing.T) {
	if code := serveAs("WS1", RoleAgent, RequireWorkspaceSID("WS1")); code != 200 {
		t.Fatalf("expected 200 for the served workspace, got %d", code)
	}
	if code := serveAs("WS2", RoleAdmin, RequireWorkspaceSID("WS1")); code != 403 {
		t.Fatalf("expected 403 for another workspace, got %d", code)
	}
	if code := serveAs("WS2", RoleAgent, RequireWorkspaceSID("")); code != 200 {
		t.Fatalf("expected any workspace when unpinned, got %d", code)
	}
}
