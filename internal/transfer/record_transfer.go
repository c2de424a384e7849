package transfer

type RecordCreation struct {
	Caption   string `json:"caption"`
	Niche     string `json:"niche"`
	Account   string `json:"account"`
	SourceURL string `json:"source_url"`
	LocalPath string `json:"local_path"`
}

type ScheduleRequest struct {
	// ScheduledTime is UTC, formatted 2006-01-02T15:04 or RFC 3339.
	ScheduledTime string `json:"scheduled_time"`
}

type CaptionRequest struct {
	Caption string `json:"caption"`
}

type RepostRequest struct {
	Account string `json:"account"`
}
