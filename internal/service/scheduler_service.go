package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/repository"
)

var (
	ErrNotPosted     = errors.New("record has not been posted yet")
	ErrAlreadyPosted = errors.New("record was already posted to this account")
)

type SchedulerService interface {
	RunOnce(ctx context.Context, now time.Time) ([]models.Outcome, error)
	Repost(ctx context.Context, recordID, account string, now time.Time) (*models.Outcome, error)
}

type schedulerService struct {
	mu         sync.Mutex
	records    repository.RecordRepository
	accounts   repository.AccountRepository
	uploads    UploadService
	posts      PostService
	claimLease time.Duration
}

func NewSchedulerService(
	records repository.RecordRepository,
	accounts repository.AccountRepository,
	uploads UploadService,
	posts PostService,
	claimLease time.Duration) SchedulerService {
	return &schedulerService{
		records:    records,
		accounts:   accounts,
		uploads:    uploads,
		posts:      posts,
		claimLease: claimLease,
	}
}

// RunOnce publishes every scheduled record due at now, one at a time, and
// commits each outcome before moving on. Only a store failure or
// cancellation stops the run early.
func (s *schedulerService) RunOnce(ctx context.Context, now time.Time) ([]models.Outcome, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	outcomes := make([]models.Outcome, 0)
	for _, rec := range records {
		if rec.Status != models.StatusScheduled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		if rec.ScheduleErr != nil {
			outcome := models.Outcome{RecordID: rec.ID, Status: models.OutcomeFailed, Reason: rec.ScheduleErr.Error()}
			if err := s.records.MarkFailed(context.WithoutCancel(ctx), rec, outcome.Reason); err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, outcome)
			continue
		}
		if !rec.IsDue(now) {
			continue
		}

		outcome, err := s.process(ctx, rec, now)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
		log.Printf("record %s: %s %s", outcome.RecordID, outcome.Status, outcome.Reason)
	}

	return outcomes, nil
}

// process returns an error only when the outcome could not be committed.
func (s *schedulerService) process(ctx context.Context, rec *models.ScheduledRecord, now time.Time) (models.Outcome, error) {
	outcome := models.Outcome{RecordID: rec.ID, Account: rec.Account}

	claimed, err := s.claim(ctx, rec, now)
	if err != nil {
		return outcome, err
	}
	if !claimed {
		outcome.Status = models.OutcomeSkipped
		outcome.Reason = "claimed by another worker"
		return outcome, nil
	}

	commitCtx := context.WithoutCancel(ctx)

	cred, mediaID, postID, err := s.publish(ctx, rec)
	if cred != nil {
		outcome.Account = cred.Name
	}
	if err != nil {
		slog.Info(err.Error())
		outcome.Status = models.OutcomeFailed
		outcome.Reason = err.Error()
		if err := s.records.MarkFailed(commitCtx, rec, outcome.Reason); err != nil {
			return outcome, err
		}
		return outcome, nil
	}

	entry := models.HistoryEntry{Account: cred.Name, PostedAt: now.UTC()}
	if err := s.records.MarkPosted(commitCtx, rec, entry, mediaID, postID); err != nil {
		return outcome, err
	}

	outcome.Status = models.OutcomePosted
	outcome.MediaID = mediaID
	outcome.PostID = postID
	return outcome, nil
}

func (s *schedulerService) publish(ctx context.Context, rec *models.ScheduledRecord) (*models.AccountCredential, string, string, error) {
	cred, err := s.accounts.Resolve(ctx, rec.Account, rec.Niche)
	if err != nil {
		return nil, "", "", err
	}

	mediaID, err := s.media(ctx, cred, rec)
	if err != nil {
		return cred, "", "", err
	}

	var mediaIDs []string
	if mediaID != "" {
		mediaIDs = []string{mediaID}
	}
	postID, err := s.posts.Submit(ctx, cred, rec.Caption, mediaIDs)
	if err != nil {
		return cred, mediaID, "", err
	}
	return cred, mediaID, postID, nil
}

// media uploads the local file when there is one, otherwise confirms an
// already assigned media id. Records with neither are posted as text.
func (s *schedulerService) media(ctx context.Context, cred *models.AccountCredential, rec *models.ScheduledRecord) (string, error) {
	switch {
	case rec.LocalPath != "":
		return s.uploads.UploadFile(ctx, cred, rec.LocalPath)
	case rec.MediaID != "":
		return s.uploads.AwaitProcessing(ctx, cred, rec.MediaID)
	default:
		return "", nil
	}
}

func (s *schedulerService) claim(ctx context.Context, rec *models.ScheduledRecord, now time.Time) (bool, error) {
	if claimHeld(rec.Claim, now, s.claimLease) {
		return false, nil
	}
	return s.records.Claim(ctx, rec, newClaim(now))
}

// Repost publishes an already posted record under another account. The
// status stays Posted and the new account is added to the history.
func (s *schedulerService) Repost(ctx context.Context, recordID, account string, now time.Time) (*models.Outcome, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusPosted {
		return nil, ErrNotPosted
	}
	if rec.PostedTo(account) {
		return nil, ErrAlreadyPosted
	}

	cred, err := s.accounts.GetByName(ctx, account)
	if err != nil {
		return nil, err
	}

	var mediaIDs []string
	mediaID := ""
	if rec.LocalPath != "" {
		if mediaID, err = s.uploads.UploadFile(ctx, cred, rec.LocalPath); err != nil {
			return nil, err
		}
		mediaIDs = []string{mediaID}
	}

	postID, err := s.posts.Submit(ctx, cred, rec.Caption, mediaIDs)
	if err != nil {
		return nil, err
	}

	entry := models.HistoryEntry{Account: cred.Name, PostedAt: now.UTC()}
	if err := s.records.AppendHistory(context.WithoutCancel(ctx), rec, entry, mediaID, postID); err != nil {
		return nil, err
	}

	return &models.Outcome{
		RecordID: rec.ID,
		Status:   models.OutcomePosted,
		Account:  cred.Name,
		MediaID:  mediaID,
		PostID:   postID,
	}, nil
}
