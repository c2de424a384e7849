package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/queue"
	"github.com/stretchr/testify/assert"
)

type fakeTokens struct {
	calls int
	at    time.Time
	err   error
}

func (f *fakeTokens) RefreshExpiring(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	f.at = now
	return 1, f.err
}

func (f *fakeTokens) Refresh(ctx context.Context, acc *models.AccountCredential) error { return nil }

func TestTokenRefreshJob(t *testing.T) {
	ts := &fakeTokens{}
	NewTokenRefreshJob(ts, time.Second).RefreshTokens()
	assert.Equal(t, 1, ts.calls)
	assert.WithinDuration(t, time.Now(), ts.at, time.Minute)

	ts.err = errors.New("sheets down")
	NewTokenRefreshJob(ts, time.Second).RefreshTokens()
	assert.Equal(t, 2, ts.calls)
}

type fakeDispatcher struct {
	runs    []queue.ScheduleRunPayload
	rehosts []queue.MediaRehostPayload
	err     error
}

func (f *fakeDispatcher) Run(p queue.ScheduleRunPayload) error {
	f.runs = append(f.runs, p)
	return f.err
}

func (f *fakeDispatcher) RunAt(at time.Time) error { return f.err }

func (f *fakeDispatcher) Rehost(p queue.MediaRehostPayload) error {
	f.rehosts = append(f.rehosts, p)
	return f.err
}

func TestScheduleTickJob(t *testing.T) {
	d := &fakeDispatcher{}
	j := NewScheduleTickJob(d)

	j.Tick()
	j.Tick()
	assert.Equal(t, []queue.ScheduleRunPayload{{Source: "tick"}, {Source: "tick"}}, d.runs)

	d.err = errors.New("redis down")
	assert.NotPanics(t, j.Tick)
}

func TestRehostTickJob(t *testing.T) {
	d := &fakeDispatcher{}
	NewRehostTickJob(d).Tick()
	assert.Equal(t, []queue.MediaRehostPayload{{Source: "tick"}}, d.rehosts)
}
