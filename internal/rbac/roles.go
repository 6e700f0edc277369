package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAgent      = "agent"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
	RoleSystem     = "system" // hidden role, used by internal integrations
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleSystem }

// IsKnownRole reports whether role may be issued in a token.
func IsKnownRole(role string) bool {
	switch role {
	case RoleAgent, RoleSupervisor, RoleAdmin, RoleSystem:
		return true
	default:
		return false
	}
}
