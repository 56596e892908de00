package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT for the
// recovery feed. Tokens are issued to internal tooling, never to shoppers.
type AccessTokenPayload struct {
	TenantID string
	Scope    string
}

// ScopeRecoveryRead allows listing checkout sessions for recovery tooling.
const ScopeRecoveryRead = "recovery:read"

// AccessTokenClaims represents the typed JWT presented by recovery tooling.
type AccessTokenClaims struct {
	TenantID string `json:"tenant_id"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}
