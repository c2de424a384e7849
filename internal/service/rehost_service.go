package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/repository"
)

type RehostService interface {
	RehostPending(ctx context.Context) (int, error)
}

// rehostService downloads source media of records that have not been
// fetched yet, keeps a local copy for upload and publishes a mirror on the
// media host.
type rehostService struct {
	records  repository.RecordRepository
	host     MediaHost
	client   *http.Client
	mediaDir string
}

func NewRehostService(records repository.RecordRepository, host MediaHost, mediaDir string, timeout time.Duration) RehostService {
	return &rehostService{
		records:  records,
		host:     host,
		client:   &http.Client{Timeout: timeout},
		mediaDir: mediaDir,
	}
}

// RehostPending processes every record with a source URL and no local copy.
// A failing record is logged and left for the next pass.
func (s *rehostService) RehostPending(ctx context.Context) (int, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read records: %w", err)
	}

	done := 0
	for _, rec := range records {
		if rec.SourceURL == "" || rec.Downloaded {
			continue
		}
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.rehost(ctx, rec); err != nil {
			slog.Info(err.Error())
			continue
		}
		done++
	}
	return done, nil
}

func (s *rehostService) rehost(ctx context.Context, rec *models.ScheduledRecord) error {
	data, err := s.download(ctx, rec.SourceURL)
	if err != nil {
		return fmt.Errorf("record %s: download failed: %w", rec.ID, err)
	}

	contentType := DetectMediaType(data, rec.SourceURL)
	ext := "bin"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}
	name := rec.ID + "." + ext

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.mediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("record %s: cannot keep local copy: %w", rec.ID, err)
	}

	url, err := s.host.Store(ctx, name, data, contentType)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.ID, err)
	}

	if err := s.records.MarkDownloaded(ctx, rec, path, url); err != nil {
		return err
	}
	log.Printf("record %s rehosted at %s", rec.ID, url)
	return nil
}

func (s *rehostService) download(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
