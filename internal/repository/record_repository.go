package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/rowstore"
)

// TimeLayout is how timestamps are written to the table, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Column names of the videos table.
const (
	fieldID              = "ID"
	fieldNiche           = "niche"
	fieldAccount         = "account"
	fieldCaption         = "caption"
	fieldSourceURL       = "source_url"
	fieldDownloadURL     = "download_url"
	fieldDownloaded      = "downloaded"
	fieldLocalPath       = "local_path"
	fieldMediaID         = "media_id"
	fieldPosted          = "posted"
	fieldSchedule        = "schedule_date_time"
	fieldHistoryAccounts = "account uploaded to"
	fieldHistoryTimes    = "time uploaded"
	fieldPostID          = "post_id"
	fieldFailReason      = "fail_reason"
	fieldClaim           = "claim"
)

var statusCodes = map[models.Status]string{
	models.StatusUnscheduled: "N",
	models.StatusScheduled:   "S",
	models.StatusPosted:      "Y",
	models.StatusFailed:      "F",
}

var ErrRecordNotFound = errors.New("record not found")

type RecordRepository interface {
	List(ctx context.Context) ([]*models.ScheduledRecord, error)
	GetByID(ctx context.Context, id string) (*models.ScheduledRecord, error)
	Create(ctx context.Context, rec *models.ScheduledRecord) error
	Schedule(ctx context.Context, rec *models.ScheduledRecord, at time.Time) error
	UpdateCaption(ctx context.Context, rec *models.ScheduledRecord, caption string) error
	MarkPosted(ctx context.Context, rec *models.ScheduledRecord, entry models.HistoryEntry, mediaID, postID string) error
	MarkFailed(ctx context.Context, rec *models.ScheduledRecord, reason string) error
	AppendHistory(ctx context.Context, rec *models.ScheduledRecord, entry models.HistoryEntry, mediaID, postID string) error
	MarkDownloaded(ctx context.Context, rec *models.ScheduledRecord, localPath, downloadURL string) error
	Claim(ctx context.Context, rec *models.ScheduledRecord, token string) (bool, error)
}

type recordRepository struct {
	store rowstore.Store
	table string
}

func NewRecordRepository(store rowstore.Store, table string) RecordRepository {
	return &recordRepository{store: store, table: table}
}

func (r *recordRepository) List(ctx context.Context) ([]*models.ScheduledRecord, error) {
	rows, err := r.store.ReadAll(ctx, r.table)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	records := make([]*models.ScheduledRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, decodeRecord(row))
	}
	return records, nil
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (*models.ScheduledRecord, error) {
	records, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *recordRepository) Create(ctx context.Context, rec *models.ScheduledRecord) error {
	ref, err := r.store.Append(ctx, r.table, encodeRecord(rec))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	rec.Ref = ref
	return nil
}

func (r *recordRepository) Schedule(ctx context.Context, rec *models.ScheduledRecord, at time.Time) error {
	return r.update(ctx, rec, map[string]string{
		fieldPosted:     statusCodes[models.StatusScheduled],
		fieldSchedule:   at.UTC().Format(TimeLayout),
		fieldFailReason: "",
	})
}

func (r *recordRepository) UpdateCaption(ctx context.Context, rec *models.ScheduledRecord, caption string) error {
	return r.update(ctx, rec, map[string]string{fieldCaption: caption})
}

func (r *recordRepository) MarkPosted(ctx context.Context, rec *models.ScheduledRecord, entry models.HistoryEntry, mediaID, postID string) error {
	fields := historyFields(rec.History, entry)
	fields[fieldPosted] = statusCodes[models.StatusPosted]
	fields[fieldMediaID] = mediaID
	fields[fieldPostID] = postID
	fields[fieldFailReason] = ""
	fields[fieldClaim] = ""
	return r.update(ctx, rec, fields)
}

// MarkFailed leaves the schedule in place so the record can be rescheduled.
func (r *recordRepository) MarkFailed(ctx context.Context, rec *models.ScheduledRecord, reason string) error {
	return r.update(ctx, rec, map[string]string{
		fieldPosted:     statusCodes[models.StatusFailed],
		fieldFailReason: reason,
		fieldClaim:      "",
	})
}

func (r *recordRepository) AppendHistory(ctx context.Context, rec *models.ScheduledRecord, entry models.HistoryEntry, mediaID, postID string) error {
	fields := historyFields(rec.History, entry)
	fields[fieldMediaID] = mediaID
	fields[fieldPostID] = postID
	return r.update(ctx, rec, fields)
}

func (r *recordRepository) MarkDownloaded(ctx context.Context, rec *models.ScheduledRecord, localPath, downloadURL string) error {
	return r.update(ctx, rec, map[string]string{
		fieldLocalPath:   localPath,
		fieldDownloadURL: downloadURL,
		fieldDownloaded:  "Y",
	})
}

// Claim replaces the record's claim with token when nobody changed it since
// the record was read. Stores without compare-and-swap always grant it.
func (r *recordRepository) Claim(ctx context.Context, rec *models.ScheduledRecord, token string) (bool, error) {
	swapper, ok := r.store.(rowstore.Swapper)
	if !ok {
		return true, nil
	}

	swapped, err := swapper.CompareAndSwap(ctx, r.table, rec.Ref, fieldClaim, rec.Claim, token)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	if swapped {
		rec.Claim = token
	}
	return swapped, nil
}

func (r *recordRepository) update(ctx context.Context, rec *models.ScheduledRecord, fields map[string]string) error {
	if err := r.store.UpdateFields(ctx, r.table, rec.Ref, fields); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to update record %s: %w", rec.ID, err)
	}
	return nil
}

func decodeRecord(row rowstore.Row) *models.ScheduledRecord {
	rec := &models.ScheduledRecord{
		Ref:         row.Ref,
		ID:          strings.TrimSpace(row.Get(fieldID)),
		Niche:       strings.TrimSpace(row.Get(fieldNiche)),
		Account:     strings.TrimSpace(row.Get(fieldAccount)),
		Caption:     row.Get(fieldCaption),
		SourceURL:   strings.TrimSpace(row.Get(fieldSourceURL)),
		DownloadURL: strings.TrimSpace(row.Get(fieldDownloadURL)),
		Downloaded:  strings.EqualFold(strings.TrimSpace(row.Get(fieldDownloaded)), "Y"),
		LocalPath:   strings.TrimSpace(row.Get(fieldLocalPath)),
		MediaID:     strings.TrimSpace(row.Get(fieldMediaID)),
		Status:      decodeStatus(row.Get(fieldPosted)),
		PostID:      strings.TrimSpace(row.Get(fieldPostID)),
		FailReason:  row.Get(fieldFailReason),
		Claim:       row.Get(fieldClaim),
	}

	raw := strings.TrimSpace(row.Get(fieldSchedule))
	if raw != "" {
		at, err := ParseTime(raw)
		if err != nil {
			rec.ScheduleErr = &ParseError{RecordID: rec.ID, Field: fieldSchedule, Value: raw, Err: err}
		} else {
			rec.ScheduledAt = at
		}
	} else if rec.Status == models.StatusScheduled {
		rec.ScheduleErr = &ParseError{RecordID: rec.ID, Field: fieldSchedule, Value: raw, Err: errors.New("empty timestamp")}
	}

	rec.History = decodeHistory(row.Get(fieldHistoryAccounts), row.Get(fieldHistoryTimes))
	return rec
}

func encodeRecord(rec *models.ScheduledRecord) map[string]string {
	values := map[string]string{
		fieldID:          rec.ID,
		fieldNiche:       rec.Niche,
		fieldAccount:     rec.Account,
		fieldCaption:     rec.Caption,
		fieldSourceURL:   rec.SourceURL,
		fieldDownloadURL: rec.DownloadURL,
		fieldDownloaded:  "N",
		fieldLocalPath:   rec.LocalPath,
		fieldMediaID:     rec.MediaID,
		fieldPosted:      statusCodes[rec.Status],
		fieldSchedule:    "",
		fieldPostID:      rec.PostID,
		fieldFailReason:  rec.FailReason,
		fieldClaim:       "",
	}
	if rec.Downloaded {
		values[fieldDownloaded] = "Y"
	}
	if values[fieldPosted] == "" {
		values[fieldPosted] = statusCodes[models.StatusUnscheduled]
	}
	if !rec.ScheduledAt.IsZero() {
		values[fieldSchedule] = rec.ScheduledAt.UTC().Format(TimeLayout)
	}
	for k, v := range historyFields(nil, rec.History...) {
		values[k] = v
	}
	return values
}

func decodeStatus(raw string) models.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s", string(models.StatusScheduled):
		return models.StatusScheduled
	case "y", string(models.StatusPosted):
		return models.StatusPosted
	case "f", string(models.StatusFailed):
		return models.StatusFailed
	default:
		return models.StatusUnscheduled
	}
}

// ParseTime reads a stored timestamp as UTC.
func ParseTime(raw string) (time.Time, error) {
	at, err := time.ParseInLocation(TimeLayout, raw, time.UTC)
	if err == nil {
		return at, nil
	}
	if at, rfcErr := time.Parse(time.RFC3339, raw); rfcErr == nil {
		return at.UTC(), nil
	}
	return time.Time{}, err
}

// History is kept as two parallel comma-separated columns.
func decodeHistory(accountsRaw, timesRaw string) []models.HistoryEntry {
	accounts := splitList(accountsRaw)
	times := splitList(timesRaw)

	n := len(accounts)
	if len(times) > n {
		n = len(times)
	}

	history := make([]models.HistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		var entry models.HistoryEntry
		if i < len(accounts) {
			entry.Account = accounts[i]
		}
		if i < len(times) {
			if at, err := ParseTime(times[i]); err == nil {
				entry.PostedAt = at
			}
		}
		history = append(history, entry)
	}
	return history
}

func historyFields(history []models.HistoryEntry, added ...models.HistoryEntry) map[string]string {
	all := append(append([]models.HistoryEntry{}, history...), added...)
	accounts := make([]string, len(all))
	times := make([]string, len(all))
	for i, h := range all {
		accounts[i] = h.Account
		if !h.PostedAt.IsZero() {
			times[i] = h.PostedAt.UTC().Format(TimeLayout)
		}
	}
	return map[string]string{
		fieldHistoryAccounts: strings.Join(accounts, ", "),
		fieldHistoryTimes:    strings.Join(times, ", "),
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
