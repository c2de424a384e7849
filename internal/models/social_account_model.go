package models

import (
	"time"
)

// AccountCredential is a posting account and its bearer token pair. Category
// selects which records the account publishes when a record names no account.
type AccountCredential struct {
	Ref            int64     `json:"-"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}
