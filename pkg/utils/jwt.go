package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/clipposter/internal/transfer"
)

const sessionIssuer = "clipposter"

var ErrInvalidSession = errors.New("invalid session token")

// NewSessionToken signs an HS256 session for operator valid for ttl.
func NewSessionToken(secretKey, operator string, ttl time.Duration) (string, error) {
	if secretKey == "" {
		return "", errors.New("session secret is not configured")
	}

	now := time.Now()
	claims := transfer.SessionClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func ParseSessionToken(secretKey, tokenString string) (*transfer.SessionClaims, error) {
	claims := &transfer.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if !token.Valid || claims.Operator == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
