package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/clipposter/internal/transfer"
	"golang.org/x/oauth2"
)

// APIError is a non-2xx answer from the upload or post endpoints.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the media upload endpoint and the v2 posts endpoint on
// behalf of one bearer token per call.
type Client struct {
	uploadURL  string
	apiURL     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(uploadURL, apiURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		uploadURL:  uploadURL,
		apiURL:     strings.TrimRight(apiURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

func (c *Client) Init(ctx context.Context, token string, totalBytes int64, mediaType, category string) (*transfer.MediaInitResponse, error) {
	form := url.Values{}
	form.Set("command", "INIT")
	form.Set("total_bytes", strconv.FormatInt(totalBytes, 10))
	form.Set("media_type", mediaType)
	if category != "" {
		form.Set("media_category", category)
	}

	var resp transfer.MediaInitResponse
	if err := c.postForm(ctx, token, form, &resp); err != nil {
		return nil, err
	}
	if resp.MediaIDString == "" && resp.MediaID != 0 {
		resp.MediaIDString = strconv.FormatInt(resp.MediaID, 10)
	}
	if resp.MediaIDString == "" {
		return nil, fmt.Errorf("init response carried no media id")
	}
	return &resp, nil
}

// Append sends one segment as multipart form data. Only the status code is
// meaningful in the answer.
func (c *Client) Append(ctx context.Context, token, mediaID string, segment int, chunk []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"command":       "APPEND",
		"media_id":      mediaID,
		"segment_index": strconv.Itoa(segment),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("media", "blob")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.do(ctx, token, http.MethodPost, c.uploadURL, w.FormDataContentType(), &body, nil)
}

func (c *Client) Finalize(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error) {
	form := url.Values{}
	form.Set("command", "FINALIZE")
	form.Set("media_id", mediaID)

	var resp transfer.MediaStatusResponse
	if err := c.postForm(ctx, token, form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Status(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error) {
	q := url.Values{}
	q.Set("command", "STATUS")
	q.Set("media_id", mediaID)

	var resp transfer.MediaStatusResponse
	if err := c.do(ctx, token, http.MethodGet, c.uploadURL+"?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreatePost(ctx context.Context, token string, req transfer.CreatePostRequest) (*transfer.CreatePostResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var resp transfer.CreatePostResponse
	if err := c.do(ctx, token, http.MethodPost, c.apiURL+"/2/tweets", "application/json", bytes.NewReader(payload), &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "post response carried no id"}
	}
	return &resp, nil
}

func (c *Client) postForm(ctx context.Context, token string, form url.Values, out any) error {
	return c.do(ctx, token, http.MethodPost, c.uploadURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *Client) do(ctx context.Context, token, method, endpoint, contentType string, body io.Reader, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.bearer(ctx, token).Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) bearer(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func decodeError(status int, raw []byte) error {
	var body transfer.XErrorResponse
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message()
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
