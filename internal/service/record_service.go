package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/rowstore"
	"github.com/maheshrc27/clipposter/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var allowedMedia = map[string]struct{}{
	"mp4": {}, "mov": {}, "webm": {}, "m4v": {}, "gif": {}, "jpg": {}, "png": {},
}

type RecordService interface {
	Create(ctx context.Context, rc *transfer.RecordCreation, file *multipart.FileHeader) (*models.ScheduledRecord, error)
	List(ctx context.Context, status models.Status) ([]*models.ScheduledRecord, error)
	Refresh(ctx context.Context) error
	Schedule(ctx context.Context, id string, at time.Time) (*models.ScheduledRecord, error)
	UpdateCaption(ctx context.Context, id, caption string) (*models.ScheduledRecord, error)
}

// recordService serves the owner's view of the videos table from a cache.
// Reads stay cached until Refresh or one of the service's own writes.
type recordService struct {
	records  repository.RecordRepository
	cache    *rowstore.Cache
	table    string
	mediaDir string
}

func NewRecordService(cache *rowstore.Cache, table, mediaDir string) RecordService {
	return &recordService{
		records:  repository.NewRecordRepository(cache, table),
		cache:    cache,
		table:    table,
		mediaDir: mediaDir,
	}
}

func (s *recordService) Create(ctx context.Context, rc *transfer.RecordCreation, file *multipart.FileHeader) (*models.ScheduledRecord, error) {
	if rc == nil {
		err := &InputError{Message: "record data is nil"}
		slog.Info(err.Error())
		return nil, err
	}
	if strings.TrimSpace(rc.Caption) == "" {
		err := &InputError{Message: "caption cannot be empty"}
		slog.Info(err.Error())
		return nil, err
	}
	if rc.Account == "" && rc.Niche == "" {
		err := &InputError{Message: "either account or niche is required"}
		slog.Info(err.Error())
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		log.Println(err.Error())
		return nil, err
	}

	rec := &models.ScheduledRecord{
		ID:        id,
		Account:   strings.TrimSpace(rc.Account),
		Niche:     strings.TrimSpace(rc.Niche),
		Caption:   rc.Caption,
		SourceURL: strings.TrimSpace(rc.SourceURL),
		LocalPath: strings.TrimSpace(rc.LocalPath),
		Status:    models.StatusUnscheduled,
	}

	if file != nil {
		path, err := s.saveFile(id, file)
		if err != nil {
			return nil, err
		}
		rec.LocalPath = path
	}
	rec.Downloaded = rec.LocalPath != ""

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("error creating record: %w", err)
	}
	return rec, nil
}

func (s *recordService) saveFile(id string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("error reading file content: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", &InputError{Message: "unsupported file type"}
	}
	if _, ok := allowedMedia[kind.Extension]; !ok {
		return "", &InputError{Message: fmt.Sprintf("file type %s is not allowed", kind.Extension)}
	}

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	path := filepath.Join(s.mediaDir, id+"."+kind.Extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return path, nil
}

// List returns every record, or only those with status when it is set.
func (s *recordService) List(ctx context.Context, status models.Status) ([]*models.ScheduledRecord, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	if status == "" {
		return records, nil
	}

	filtered := make([]*models.ScheduledRecord, 0, len(records))
	for _, rec := range records {
		if rec.Status == status {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func (s *recordService) Refresh(ctx context.Context) error {
	_, err := s.cache.Refresh(ctx, s.table)
	return err
}

// Schedule sets or moves the publication time. Posted records are final.
func (s *recordService) Schedule(ctx context.Context, id string, at time.Time) (*models.ScheduledRecord, error) {
	if at.IsZero() {
		return nil, &InputError{Message: "scheduled time is required"}
	}

	rec, err := s.fresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusScheduled && !rec.Status.CanTransition(models.StatusScheduled) {
		return nil, &TransitionError{RecordID: id, From: rec.Status, To: models.StatusScheduled}
	}

	if err := s.records.Schedule(ctx, rec, at); err != nil {
		return nil, err
	}
	rec.Status = models.StatusScheduled
	rec.ScheduledAt = at.UTC()
	rec.FailReason = ""
	rec.ScheduleErr = nil
	return rec, nil
}

func (s *recordService) UpdateCaption(ctx context.Context, id, caption string) (*models.ScheduledRecord, error) {
	if strings.TrimSpace(caption) == "" {
		return nil, &InputError{Message: "caption cannot be empty"}
	}

	rec, err := s.fresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusPosted {
		return nil, &InputError{Message: "caption of a posted record cannot change"}
	}

	if err := s.records.UpdateCaption(ctx, rec, caption); err != nil {
		return nil, err
	}
	rec.Caption = caption
	return rec, nil
}

// fresh reloads the table before a status-dependent write so the check does
// not run against a stale cached row.
func (s *recordService) fresh(ctx context.Context, id string) (*models.ScheduledRecord, error) {
	s.cache.Invalidate(s.table)
	return s.records.GetByID(ctx, id)
}

// ParseScheduleTime accepts the form layout used by the dashboard, the table
// layout and RFC 3339. Values without a zone are UTC.
func ParseScheduleTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if at, err := time.ParseInLocation("2006-01-02T15:04", raw, time.UTC); err == nil {
		return at, nil
	}
	at, err := repository.ParseTime(raw)
	if err != nil {
		return time.Time{}, &InputError{Message: fmt.Sprintf("invalid scheduled time %q", raw)}
	}
	return at, nil
}
