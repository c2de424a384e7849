package models

import "time"

type Status string

const (
	StatusUnscheduled Status = "unscheduled"
	StatusScheduled   Status = "scheduled"
	StatusPosted      Status = "posted"
	StatusFailed      Status = "failed"
)

// transitions lists the status changes a record may go through. Reposting a
// posted record only appends to its history.
var transitions = map[Status][]Status{
	StatusUnscheduled: {StatusScheduled},
	StatusScheduled:   {StatusPosted, StatusFailed},
	StatusFailed:      {StatusScheduled},
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type HistoryEntry struct {
	Account  string    `json:"account"`
	PostedAt time.Time `json:"posted_at"`
}

type ScheduledRecord struct {
	Ref         int64          `json:"-"`
	ID          string         `json:"id"`
	Account     string         `json:"account"`
	Niche       string         `json:"niche"`
	Caption     string         `json:"caption"`
	SourceURL   string         `json:"source_url"`
	DownloadURL string         `json:"download_url"`
	Downloaded  bool           `json:"downloaded"`
	LocalPath   string         `json:"local_path"`
	MediaID     string         `json:"media_id"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Status      Status         `json:"status"`
	History     []HistoryEntry `json:"history"`
	PostID      string         `json:"post_id"`
	FailReason  string         `json:"fail_reason"`
	Claim       string         `json:"-"`

	// ScheduleErr is set when the stored schedule timestamp could not be parsed.
	ScheduleErr error `json:"-"`
}

// IsDue reports whether the record should be published at now.
func (r *ScheduledRecord) IsDue(now time.Time) bool {
	return r.Status == StatusScheduled && r.ScheduleErr == nil && !r.ScheduledAt.After(now)
}

// PostedTo reports whether the record was already published under account.
func (r *ScheduledRecord) PostedTo(account string) bool {
	for _, h := range r.History {
		if h.Account == account {
			return true
		}
	}
	return false
}
