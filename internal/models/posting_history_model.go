package models

type OutcomeStatus string

const (
	OutcomePosted  OutcomeStatus = "posted"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome is the result of processing one due record in a scheduler run.
type Outcome struct {
	RecordID string        `json:"record_id"`
	Status   OutcomeStatus `json:"status"`
	Account  string        `json:"account,omitempty"`
	PostID   string        `json:"post_id,omitempty"`
	MediaID  string        `json:"media_id,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}
