package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/rowstore"
	"github.com/maheshrc27/clipposter/pkg/utils"
)

// Column names of the profiles table. The OAuth1 access_token_secret column
// of older sheets is not read; refresh_token holds the OAuth2 refresh token.
const (
	fieldProfileID      = "profile_id"
	fieldProfileName    = "profile_name"
	fieldProfileNiche   = "niche_name"
	fieldAccessToken    = "access_token"
	fieldRefreshToken   = "refresh_token"
	fieldTokenExpiresAt = "token_expires_at"
)

type AccountRepository interface {
	List(ctx context.Context) ([]*models.AccountCredential, error)
	GetByName(ctx context.Context, name string) (*models.AccountCredential, error)
	GetByCategory(ctx context.Context, category string) (*models.AccountCredential, error)
	Resolve(ctx context.Context, account, category string) (*models.AccountCredential, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error)
	SetToken(ctx context.Context, acc *models.AccountCredential, accessToken, refreshToken string, expiresAt time.Time) error
}

// accountRepository reads credentials from the profiles table. When secretKey
// is set, tokens are stored AES-GCM encrypted.
type accountRepository struct {
	store     rowstore.Store
	table     string
	secretKey []byte
}

func NewAccountRepository(store rowstore.Store, table string, secretKey []byte) AccountRepository {
	return &accountRepository{store: store, table: table, secretKey: secretKey}
}

func (r *accountRepository) List(ctx context.Context) ([]*models.AccountCredential, error) {
	rows, err := r.store.ReadAll(ctx, r.table)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	accounts := make([]*models.AccountCredential, 0, len(rows))
	for _, row := range rows {
		acc, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (r *accountRepository) GetByName(ctx context.Context, name string) (*models.AccountCredential, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if acc.Name == name {
			return acc, nil
		}
	}
	return nil, &CredentialNotFoundError{Account: name}
}

// GetByCategory returns the first account of the category, in table order.
func (r *accountRepository) GetByCategory(ctx context.Context, category string) (*models.AccountCredential, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if category != "" && strings.EqualFold(acc.Category, category) {
			return acc, nil
		}
	}
	return nil, &CredentialNotFoundError{Category: category}
}

// Resolve picks the named account, or the first account of category when no
// account is named.
func (r *accountRepository) Resolve(ctx context.Context, account, category string) (*models.AccountCredential, error) {
	if account != "" {
		return r.GetByName(ctx, account)
	}
	return r.GetByCategory(ctx, category)
}

func (r *accountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.AccountCredential, error) {
	accounts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var expiring []*models.AccountCredential
	for _, acc := range accounts {
		if acc.RefreshToken == "" || acc.TokenExpiresAt.IsZero() {
			continue
		}
		if acc.TokenExpiresAt.Before(before) {
			expiring = append(expiring, acc)
		}
	}
	return expiring, nil
}

func (r *accountRepository) SetToken(ctx context.Context, acc *models.AccountCredential, accessToken, refreshToken string, expiresAt time.Time) error {
	access, err := r.seal(accessToken)
	if err != nil {
		return err
	}
	refresh, err := r.seal(refreshToken)
	if err != nil {
		return err
	}

	fields := map[string]string{
		fieldAccessToken:    access,
		fieldTokenExpiresAt: expiresAt.UTC().Format(TimeLayout),
	}
	if refreshToken != "" {
		fields[fieldRefreshToken] = refresh
	}

	if err := r.store.UpdateFields(ctx, r.table, acc.Ref, fields); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to store token for %s: %w", acc.Name, err)
	}
	return nil
}

func (r *accountRepository) decode(row rowstore.Row) (*models.AccountCredential, error) {
	acc := &models.AccountCredential{
		Ref:      row.Ref,
		ID:       strings.TrimSpace(row.Get(fieldProfileID)),
		Name:     strings.TrimSpace(row.Get(fieldProfileName)),
		Category: strings.TrimSpace(row.Get(fieldProfileNiche)),
	}

	var err error
	if acc.AccessToken, err = r.open(row.Get(fieldAccessToken)); err != nil {
		return nil, fmt.Errorf("account %s: cannot read access token: %w", acc.Name, err)
	}
	if acc.RefreshToken, err = r.open(row.Get(fieldRefreshToken)); err != nil {
		return nil, fmt.Errorf("account %s: cannot read refresh token: %w", acc.Name, err)
	}

	if raw := strings.TrimSpace(row.Get(fieldTokenExpiresAt)); raw != "" {
		if at, err := ParseTime(raw); err == nil {
			acc.TokenExpiresAt = at
		}
	}
	return acc, nil
}

func (r *accountRepository) seal(token string) (string, error) {
	return utils.SealToken(r.secretKey, token)
}

func (r *accountRepository) open(token string) (string, error) {
	return utils.OpenToken(r.secretKey, token)
}
