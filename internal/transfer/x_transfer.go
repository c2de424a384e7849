package transfer

type MediaInitResponse struct {
	MediaID          int64  `json:"media_id"`
	MediaIDString    string `json:"media_id_string"`
	ExpiresAfterSecs int    `json:"expires_after_secs"`
}

type ProcessingError struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type ProcessingInfo struct {
	State           string           `json:"state"`
	CheckAfterSecs  int              `json:"check_after_secs"`
	ProgressPercent int              `json:"progress_percent"`
	Error           *ProcessingError `json:"error,omitempty"`
}

// MediaStatusResponse is returned by both FINALIZE and STATUS.
type MediaStatusResponse struct {
	MediaIDString  string          `json:"media_id_string"`
	Size           int64           `json:"size"`
	ProcessingInfo *ProcessingInfo `json:"processing_info,omitempty"`
}

type PostMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type CreatePostRequest struct {
	Text  string     `json:"text"`
	Media *PostMedia `json:"media,omitempty"`
}

type CreatePostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type XErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// XErrorResponse covers both the v2 problem format and the v1.1 errors list.
type XErrorResponse struct {
	Title  string         `json:"title"`
	Detail string         `json:"detail"`
	Type   string         `json:"type"`
	Status int            `json:"status"`
	Errors []XErrorDetail `json:"errors"`
	Error  string         `json:"error"`
}

func (e *XErrorResponse) Message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Errors) > 0 && e.Errors[0].Message != "":
		return e.Errors[0].Message
	case e.Title != "":
		return e.Title
	default:
		return e.Error
	}
}
