package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/transfer"
	"github.com/maheshrc27/clipposter/internal/xapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func stamp(t time.Time) string { return t.UTC().Format(repository.TimeLayout) }

func TestRunOnce_NoDueRecords(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "N"})
	h.seed(t, map[string]string{"ID": "b", "niche": "cats", "caption": "x", "posted": "S", "schedule_date_time": stamp(runAt.Add(time.Minute))})
	h.seed(t, map[string]string{"ID": "c", "niche": "cats", "caption": "x", "posted": "Y", "schedule_date_time": stamp(runAt.Add(-time.Hour))})
	h.seed(t, map[string]string{"ID": "d", "niche": "cats", "caption": "x", "posted": "F", "schedule_date_time": stamp(runAt.Add(-time.Hour))})
	writes := h.store.Writes()

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	assert.NotNil(t, outcomes)
	assert.Empty(t, outcomes)
	assert.Equal(t, writes, h.store.Writes())
	assert.Zero(t, h.store.Swaps())
	assert.Empty(t, h.posts.requests)
}

func TestRunOnce_TextOnly(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "hello cats", "posted": "S", "schedule_date_time": stamp(runAt.Add(-time.Second))})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomePosted, outcomes[0].Status)
	assert.Equal(t, "catsdaily", outcomes[0].Account)
	assert.Equal(t, "post-1", outcomes[0].PostID)

	require.Len(t, h.posts.requests, 1)
	assert.Equal(t, transfer.CreatePostRequest{Text: "hello cats"}, h.posts.requests[0])
	assert.Equal(t, []string{"tok-cats"}, h.posts.tokens)
	assert.Zero(t, h.media.inits)

	rec, err := h.records.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, rec.Status)
	assert.Equal(t, []models.HistoryEntry{{Account: "catsdaily", PostedAt: runAt}}, rec.History)
	assert.Equal(t, "post-1", rec.PostID)
}

func TestRunOnce_LocalMedia(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 10000000), 0o644))
	h.seed(t, map[string]string{"ID": "a", "account": "dogsdaily", "caption": "woof", "posted": "S", "local_path": path, "schedule_date_time": stamp(runAt)})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomePosted, outcomes[0].Status)

	require.Len(t, h.media.appends, 3)
	assert.Equal(t, 1611392, h.media.appends[2].size)
	require.Len(t, h.posts.requests, 1)
	assert.Equal(t, []string{"media-1"}, h.posts.requests[0].Media.MediaIDs)
	assert.Equal(t, []string{"tok-dogs"}, h.posts.tokens)

	row := h.record(t, "a")
	assert.Equal(t, "Y", row["posted"])
	assert.Equal(t, "media-1", row["media_id"])
	assert.Equal(t, "dogsdaily", row["account uploaded to"])
}

func TestRunOnce_FinalizeFailedWritesOnce(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "local_path": path, "schedule_date_time": stamp(runAt)})
	h.media.finalize = processing(models.ProcessingFailed, 0, "InvalidMedia")
	writes := h.store.Writes()
	swaps := h.store.Swaps()

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, "InvalidMedia")

	// one outcome write, preceded by the claim swap
	assert.Equal(t, writes+1, h.store.Writes())
	assert.Equal(t, swaps+1, h.store.Swaps())
	assert.Empty(t, h.posts.requests)

	row := h.record(t, "a")
	assert.Equal(t, "F", row["posted"])
	assert.Equal(t, stamp(runAt), row["schedule_date_time"])
	assert.Empty(t, row["media_id"])
	assert.Empty(t, row["claim"])
}

func TestRunOnce_MixedOutcomes(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "missing", "account": "ghost", "caption": "x", "posted": "S", "schedule_date_time": stamp(runAt)})
	h.seed(t, map[string]string{"ID": "ok", "niche": "cats", "caption": "y", "posted": "S", "schedule_date_time": stamp(runAt)})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, "missing", outcomes[0].RecordID)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, "ghost")
	assert.Equal(t, "ok", outcomes[1].RecordID)
	assert.Equal(t, models.OutcomePosted, outcomes[1].Status)

	assert.Equal(t, "F", h.record(t, "missing")["posted"])
	assert.Equal(t, "Y", h.record(t, "ok")["posted"])
}

func TestRunOnce_PostError(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "dup", "posted": "S", "schedule_date_time": stamp(runAt)})
	h.posts.err = &xapi.APIError{StatusCode: 403, Message: "duplicate content"}

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	assert.Equal(t, "post failed: duplicate content", outcomes[0].Reason)
	assert.Equal(t, "post failed: duplicate content", h.record(t, "a")["fail_reason"])
}

func TestRunOnce_MalformedSchedule(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "schedule_date_time": "next tuesday"})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, "next tuesday")
	assert.Equal(t, "F", h.record(t, "a")["posted"])
	assert.Empty(t, h.posts.requests)
}

func TestRunOnce_ReusesAssignedMedia(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "media_id": "media-7", "schedule_date_time": stamp(runAt)})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomePosted, outcomes[0].Status)
	assert.Zero(t, h.media.inits)
	assert.Equal(t, 1, h.media.statusCalls)
	assert.Equal(t, []string{"media-7"}, h.posts.requests[0].Media.MediaIDs)
}

func TestRunOnce_SkipsLiveClaim(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{
		"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "schedule_date_time": stamp(runAt),
		"claim": newClaim(runAt.Add(-time.Minute)),
	})
	writes := h.store.Writes()

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeSkipped, outcomes[0].Status)
	assert.Equal(t, writes, h.store.Writes())
	assert.Empty(t, h.posts.requests)
}

func TestRunOnce_TakesOverExpiredClaim(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{
		"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "schedule_date_time": stamp(runAt),
		"claim": newClaim(runAt.Add(-2 * time.Hour)),
	})

	outcomes, err := h.scheduler.RunOnce(context.Background(), runAt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomePosted, outcomes[0].Status)
	assert.Equal(t, 1, h.store.Swaps())
}

func TestRunOnce_SingleInFlight(t *testing.T) {
	h := newHarness(t)
	h.scheduler.mu.Lock()
	defer h.scheduler.mu.Unlock()

	_, err := h.scheduler.RunOnce(context.Background(), runAt)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunOnce_CancelledDuringPoll(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "local_path": path, "schedule_date_time": stamp(runAt)})
	h.seed(t, map[string]string{"ID": "b", "niche": "cats", "caption": "y", "posted": "S", "schedule_date_time": stamp(runAt)})
	h.media.finalize = processing(models.ProcessingInProgress, 1, "")

	ctx, cancel := context.WithCancel(context.Background())
	h.uploads.wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	outcomes, err := h.scheduler.RunOnce(ctx, runAt)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeFailed, outcomes[0].Status)

	assert.Equal(t, "F", h.record(t, "a")["posted"])
	assert.Empty(t, h.record(t, "a")["media_id"])
	assert.Equal(t, "S", h.record(t, "b")["posted"])
	assert.Empty(t, h.posts.requests)
}

func TestRepost(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{
		"ID": "a", "niche": "cats", "caption": "x", "posted": "Y", "schedule_date_time": stamp(runAt),
		"account uploaded to": "catsdaily", "time uploaded": stamp(runAt),
	})
	ctx := context.Background()
	later := runAt.Add(time.Hour)

	outcome, err := h.scheduler.Repost(ctx, "a", "dogsdaily", later)
	require.NoError(t, err)
	assert.Equal(t, "dogsdaily", outcome.Account)

	rec, err := h.records.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, rec.Status)
	require.Len(t, rec.History, 2)
	assert.Equal(t, models.HistoryEntry{Account: "dogsdaily", PostedAt: later}, rec.History[1])

	_, err = h.scheduler.Repost(ctx, "a", "dogsdaily", later)
	assert.ErrorIs(t, err, ErrAlreadyPosted)

	_, err = h.scheduler.Repost(ctx, "a", "ghost", later)
	var nf *repository.CredentialNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRepost_RequiresPosted(t *testing.T) {
	h := newHarness(t)
	h.seed(t, map[string]string{"ID": "a", "niche": "cats", "caption": "x", "posted": "S", "schedule_date_time": stamp(runAt)})

	_, err := h.scheduler.Repost(context.Background(), "a", "dogsdaily", runAt)
	assert.ErrorIs(t, err, ErrNotPosted)
	assert.Empty(t, h.posts.requests)
}

func TestClaimHeld(t *testing.T) {
	now := time.Unix(10_000, 0)
	assert.False(t, claimHeld("", now, time.Hour))
	assert.False(t, claimHeld("garbage", now, time.Hour))
	assert.False(t, claimHeld("abc@notanumber", now, time.Hour))
	assert.True(t, claimHeld("abc@9000", now, time.Hour))
	assert.False(t, claimHeld("abc@1000", now, time.Hour))
}
