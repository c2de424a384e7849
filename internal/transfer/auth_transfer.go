package transfer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims identify who triggered an owner action. Operator ends up in
// the source field of queued runs.
type SessionClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	APIKey   string `json:"api_key"`
	Operator string `json:"operator"`
}
