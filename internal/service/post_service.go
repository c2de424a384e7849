package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/transfer"
	"github.com/maheshrc27/clipposter/internal/xapi"
)

// PostAPI is the remote publish endpoint.
type PostAPI interface {
	CreatePost(ctx context.Context, token string, req transfer.CreatePostRequest) (*transfer.CreatePostResponse, error)
}

type PostService interface {
	Submit(ctx context.Context, cred *models.AccountCredential, text string, mediaIDs []string) (string, error)
}

type postService struct {
	api PostAPI
}

func NewPostService(api PostAPI) PostService {
	return &postService{api: api}
}

// Submit publishes text with zero or more processed media ids. Length and
// media count limits are left to the remote service.
func (s *postService) Submit(ctx context.Context, cred *models.AccountCredential, text string, mediaIDs []string) (string, error) {
	req := transfer.CreatePostRequest{Text: text}
	if len(mediaIDs) > 0 {
		req.Media = &transfer.PostMedia{MediaIDs: mediaIDs}
	}

	resp, err := s.api.CreatePost(ctx, cred.AccessToken, req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PostError{Reason: postFailureReason(err), Err: err}
	}
	return resp.Data.ID, nil
}

func postFailureReason(err error) string {
	var apiErr *xapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
