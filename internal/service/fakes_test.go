package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/rowstore"
	"github.com/maheshrc27/clipposter/internal/transfer"
	"github.com/stretchr/testify/require"
)

const (
	videosTable   = "VideoDatabase"
	profilesTable = "Profiles"
)

type appendCall struct {
	mediaID string
	segment int
	size    int
}

type fakeMediaAPI struct {
	mu sync.Mutex

	initErr     error
	appendErrAt int
	appendErr   error
	finalize    *transfer.MediaStatusResponse
	finalizeErr error
	statuses    []*transfer.MediaStatusResponse

	inits       int
	appends     []appendCall
	finalizes   int
	statusCalls int
	tokens      []string
}

func newFakeMediaAPI() *fakeMediaAPI {
	return &fakeMediaAPI{appendErrAt: -1, finalize: &transfer.MediaStatusResponse{MediaIDString: "media-1"}}
}

func (f *fakeMediaAPI) Init(ctx context.Context, token string, totalBytes int64, mediaType, category string) (*transfer.MediaInitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.tokens = append(f.tokens, token)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &transfer.MediaInitResponse{MediaIDString: "media-1"}, nil
}

func (f *fakeMediaAPI) Append(ctx context.Context, token, mediaID string, segment int, chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if segment == f.appendErrAt {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{mediaID: mediaID, segment: segment, size: len(chunk)})
	return nil
}

func (f *fakeMediaAPI) Finalize(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizes++
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	return f.finalize, nil
}

func (f *fakeMediaAPI) Status(ctx context.Context, token, mediaID string) (*transfer.MediaStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statuses) == 0 {
		return &transfer.MediaStatusResponse{MediaIDString: mediaID}, nil
	}
	next := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return next, nil
}

type fakePostAPI struct {
	mu       sync.Mutex
	err      error
	requests []transfer.CreatePostRequest
	tokens   []string
}

func (f *fakePostAPI) CreatePost(ctx context.Context, token string, req transfer.CreatePostRequest) (*transfer.CreatePostResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	f.tokens = append(f.tokens, token)
	resp := &transfer.CreatePostResponse{}
	resp.Data.ID = fmt.Sprintf("post-%d", len(f.requests))
	return resp, nil
}

func processing(state string, checkAfter int, msg string) *transfer.MediaStatusResponse {
	info := &transfer.ProcessingInfo{State: state, CheckAfterSecs: checkAfter}
	if msg != "" {
		info.Error = &transfer.ProcessingError{Message: msg}
	}
	return &transfer.MediaStatusResponse{MediaIDString: "media-1", ProcessingInfo: info}
}

// newTestUploads returns an upload service that records waits instead of
// sleeping.
func newTestUploads(api MediaAPI, segmentSize int) (*uploadService, *[]time.Duration) {
	waits := &[]time.Duration{}
	svc := NewUploadService(api, segmentSize, "tweet_video", 0).(*uploadService)
	svc.wait = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		*waits = append(*waits, d)
		return nil
	}
	return svc, waits
}

type harness struct {
	store     *rowstore.MemoryStore
	records   repository.RecordRepository
	accounts  repository.AccountRepository
	media     *fakeMediaAPI
	posts     *fakePostAPI
	uploads   *uploadService
	scheduler *schedulerService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := rowstore.NewMemoryStore()
	for _, p := range []map[string]string{
		{"profile_id": "1", "profile_name": "catsdaily", "niche_name": "cats", "access_token": "tok-cats"},
		{"profile_id": "2", "profile_name": "dogsdaily", "niche_name": "dogs", "access_token": "tok-dogs"},
	} {
		_, err := store.Append(context.Background(), profilesTable, p)
		require.NoError(t, err)
	}

	h := &harness{
		store:    store,
		records:  repository.NewRecordRepository(store, videosTable),
		accounts: repository.NewAccountRepository(store, profilesTable, nil),
		media:    newFakeMediaAPI(),
		posts:    &fakePostAPI{},
	}
	h.uploads, _ = newTestUploads(h.media, 4194304)
	h.scheduler = NewSchedulerService(h.records, h.accounts, h.uploads, NewPostService(h.posts), time.Hour).(*schedulerService)
	return h
}

func (h *harness) seed(t *testing.T, values map[string]string) {
	t.Helper()
	_, err := h.store.Append(context.Background(), videosTable, values)
	require.NoError(t, err)
}

func (h *harness) record(t *testing.T, id string) map[string]string {
	t.Helper()
	rows, err := h.store.ReadAll(context.Background(), videosTable)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Get("ID") == id {
			return r.Values
		}
	}
	t.Fatalf("record %s not found", id)
	return nil
}
