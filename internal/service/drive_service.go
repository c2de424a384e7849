package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveService hosts media in a Google Drive folder shared with anyone who
// has the link.
type DriveService struct {
	files    *drive.Service
	folderID string
}

func NewDriveService(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveService, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveService{files: svc, folderID: folderID}, nil
}

func (d *DriveService) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	file := &drive.File{Name: key}
	if d.folderID != "" {
		file.Parents = []string{d.folderID}
	}

	created, err := d.files.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to upload %s to drive: %w", key, err)
	}

	_, err = d.files.Permissions.Create(created.Id, &drive.Permission{Role: "reader", Type: "anyone"}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("failed to share drive file %s: %w", created.Id, err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}
