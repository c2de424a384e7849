package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/rowstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	stored map[string][]byte
	types  map[string]string
	err    error
}

func (f *fakeHost) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.stored == nil {
		f.stored = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.stored[key] = data
	f.types[key] = contentType
	return "https://media.example/" + key, nil
}

func TestRehostPending(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(png)
		default:
			http.NotFound(w, r)
		}
	}))
	defer src.Close()

	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	for _, r := range []map[string]string{
		{"ID": "a", "source_url": src.URL + "/ok.png", "downloaded": "N"},
		{"ID": "b", "source_url": src.URL + "/gone.mp4"},
		{"ID": "c", "source_url": src.URL + "/ok.png", "downloaded": "Y", "local_path": "/keep"},
		{"ID": "d"},
	} {
		_, err := store.Append(ctx, videosTable, r)
		require.NoError(t, err)
	}

	host := &fakeHost{}
	dir := t.TempDir()
	svc := NewRehostService(repository.NewRecordRepository(store, videosTable), host, dir, 5*time.Second)

	n, err := svc.RehostPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, png, host.stored["a.png"])
	assert.Equal(t, "image/png", host.types["a.png"])

	rows, _ := store.ReadAll(ctx, videosTable)
	assert.Equal(t, "Y", rows[0].Get("downloaded"))
	assert.Equal(t, filepath.Join(dir, "a.png"), rows[0].Get("local_path"))
	assert.Equal(t, "https://media.example/a.png", rows[0].Get("download_url"))
	data, err := os.ReadFile(rows[0].Get("local_path"))
	require.NoError(t, err)
	assert.Equal(t, png, data)

	assert.Empty(t, rows[1].Get("downloaded"))
	assert.Equal(t, "/keep", rows[2].Get("local_path"))
}

func TestRehostPending_HostFailureLeavesRecord(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer src.Close()

	ctx := context.Background()
	store := rowstore.NewMemoryStore()
	_, err := store.Append(ctx, videosTable, map[string]string{"ID": "a", "source_url": src.URL + "/v"})
	require.NoError(t, err)
	writes := store.Writes()

	svc := NewRehostService(repository.NewRecordRepository(store, videosTable), &fakeHost{err: errors.New("denied")}, t.TempDir(), time.Second)
	n, err := svc.RehostPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, writes, store.Writes())
}
