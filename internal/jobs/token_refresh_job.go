package job

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/maheshrc27/clipposter/internal/service"
)

type TokenRefreshJob struct {
	ts      service.TokenService
	timeout time.Duration
}

func NewTokenRefreshJob(ts service.TokenService, timeout time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{ts: ts, timeout: timeout}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.ts.RefreshExpiring(ctx, time.Now().UTC())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		log.Printf("Refreshed %d account tokens", n)
	}
}
