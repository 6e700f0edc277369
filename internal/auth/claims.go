package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: WorkspaceSID must be present on every token.
type Claims struct {
	jwt.RegisteredClaims

	WorkerSID    string    `json:"worker_sid"`
	WorkspaceSID string    `json:"workspace_sid"`
	Role         string    `json:"role"`
	TokenType    TokenType `json:"token_type"`
}
