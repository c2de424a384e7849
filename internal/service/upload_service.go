package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/transfer"
)

const defaultCheckAfter = 5 * time.Second

// MediaAPI is the remote upload endpoint.
type MediaAPI interface {
	Init(ctx context.Context, token string, totalBytes int64, mediaType, category string) (*transfer.MediaInitResponse, error)
	Append(ctx context.Context, token, mediaID string, segment int, chunk []byte) error
	Finalize(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error)
	Status(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error)
}

type UploadService interface {
	Upload(ctx context.Context, cred *models.AccountCredential, data []byte, mediaType string) (string, error)
	AwaitProcessing(ctx context.Context, cred *models.AccountCredential, mediaID string) (string, error)
	UploadFile(ctx context.Context, cred *models.AccountCredential, path string) (string, error)
}

type uploadService struct {
	api         MediaAPI
	segmentSize int
	category    string
	timeout     time.Duration
	wait        func(ctx context.Context, d time.Duration) error
}

func NewUploadService(api MediaAPI, segmentSize int, category string, timeout time.Duration) UploadService {
	return &uploadService{
		api:         api,
		segmentSize: segmentSize,
		category:    category,
		timeout:     timeout,
		wait:        sleepContext,
	}
}

// Upload runs INIT, APPEND for every segment in order, FINALIZE and, when the
// service processes the media asynchronously, polls until a terminal state.
// The media id is only returned once processing succeeded.
func (s *uploadService) Upload(ctx context.Context, cred *models.AccountCredential, data []byte, mediaType string) (string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	session := &models.MediaUploadSession{
		TotalBytes:  int64(len(data)),
		SegmentSize: s.segmentSize,
		State:       models.UploadStateUploading,
	}

	initResp, err := s.api.Init(ctx, cred.AccessToken, session.TotalBytes, mediaType, s.category)
	if err != nil {
		slog.Info(err.Error())
		return "", &InitError{Err: err}
	}
	session.MediaID = initResp.MediaIDString

	for ; session.NextSegment < session.SegmentCount(); session.NextSegment++ {
		chunk := session.Segment(data, session.NextSegment)
		if err := s.api.Append(ctx, cred.AccessToken, session.MediaID, session.NextSegment, chunk); err != nil {
			slog.Info(err.Error())
			session.State = models.UploadStateFailed
			return "", &AppendError{MediaID: session.MediaID, Segment: session.NextSegment, Err: err}
		}
	}

	finResp, err := s.api.Finalize(ctx, cred.AccessToken, session.MediaID)
	if err != nil {
		slog.Info(err.Error())
		session.State = models.UploadStateFailed
		return "", &FinalizeError{MediaID: session.MediaID, Err: err}
	}

	session.State = models.UploadStateProcessing
	mediaID, err := s.poll(ctx, cred.AccessToken, session.MediaID, finResp.ProcessingInfo)
	if err != nil {
		session.State = models.UploadStateFailed
		return "", err
	}

	session.State = models.UploadStateSucceeded
	log.Printf("media %s uploaded in %d segments", mediaID, session.SegmentCount())
	return mediaID, nil
}

// AwaitProcessing checks the status of an existing media id and waits for it
// to reach a terminal state. It never re-uploads anything.
func (s *uploadService) AwaitProcessing(ctx context.Context, cred *models.AccountCredential, mediaID string) (string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	resp, err := s.api.Status(ctx, cred.AccessToken, mediaID)
	if err != nil {
		slog.Info(err.Error())
		return "", &ProcessingError{MediaID: mediaID, Message: "status check failed", Err: err}
	}
	return s.poll(ctx, cred.AccessToken, mediaID, resp.ProcessingInfo)
}

func (s *uploadService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *uploadService) UploadFile(ctx context.Context, cred *models.AccountCredential, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to read media %s: %w", path, err)
	}
	return s.Upload(ctx, cred, data, DetectMediaType(data, path))
}

func (s *uploadService) poll(ctx context.Context, token, mediaID string, info *transfer.ProcessingInfo) (string, error) {
	for {
		if info == nil {
			return mediaID, nil
		}

		switch info.State {
		case models.ProcessingSucceeded:
			return mediaID, nil
		case models.ProcessingFailed:
			msg := "processing failed"
			if info.Error != nil && info.Error.Message != "" {
				msg = info.Error.Message
			}
			return "", &ProcessingError{MediaID: mediaID, Message: msg}
		case models.ProcessingPending, models.ProcessingInProgress:
			if err := s.wait(ctx, checkAfter(info)); err != nil {
				return "", &ProcessingError{MediaID: mediaID, Message: "wait abandoned", Err: err}
			}
			resp, err := s.api.Status(ctx, token, mediaID)
			if err != nil {
				slog.Info(err.Error())
				return "", &ProcessingError{MediaID: mediaID, Message: "status check failed", Err: err}
			}
			info = resp.ProcessingInfo
		default:
			return "", &UnexpectedStateError{MediaID: mediaID, State: info.State}
		}
	}
}

func checkAfter(info *transfer.ProcessingInfo) time.Duration {
	if info.CheckAfterSecs <= 0 {
		return defaultCheckAfter
	}
	return time.Duration(info.CheckAfterSecs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DetectMediaType sniffs the content and falls back to the file extension.
func DetectMediaType(data []byte, path string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
