package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/repository"
	"golang.org/x/oauth2"
)

type TokenService interface {
	RefreshExpiring(ctx context.Context, now time.Time) (int, error)
	Refresh(ctx context.Context, acc *models.AccountCredential) error
}

type tokenService struct {
	oauth    *oauth2.Config
	accounts repository.AccountRepository
	window   time.Duration
}

func NewTokenService(oauth *oauth2.Config, accounts repository.AccountRepository, window time.Duration) TokenService {
	return &tokenService{oauth: oauth, accounts: accounts, window: window}
}

// RefreshExpiring renews every token that expires within the refresh window.
// One failing account does not stop the others.
func (s *tokenService) RefreshExpiring(ctx context.Context, now time.Time) (int, error) {
	accounts, err := s.accounts.ListExpiring(ctx, now.Add(s.window))
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, acc := range accounts {
		if err := s.Refresh(ctx, acc); err != nil {
			slog.Info(err.Error())
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *tokenService) Refresh(ctx context.Context, acc *models.AccountCredential) error {
	if acc.RefreshToken == "" {
		err := errors.New("account has no refresh token")
		slog.Info(err.Error())
		return err
	}

	expired := &oauth2.Token{RefreshToken: acc.RefreshToken, Expiry: time.Unix(1, 0)}
	tok, err := s.oauth.TokenSource(ctx, expired).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token for %s: %w", acc.Name, err)
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = acc.RefreshToken
	}
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = GetExpiresAt(defaultTokenLifetime)
	}

	if err := s.accounts.SetToken(ctx, acc, tok.AccessToken, refresh, expiresAt); err != nil {
		return err
	}

	log.Printf("token for %s refreshed, expires %s", acc.Name, expiresAt.Format(time.RFC3339))
	return nil
}
