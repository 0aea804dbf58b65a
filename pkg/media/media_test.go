package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Download(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ID3 fake mp3 bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "Standup"+Audio.Ext)
	d := NewDownloader(Options{UserAgent: "ffdl-test"})

	n, err := d.Download(context.Background(), srv.URL+"/a.mp3", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len("ID3 fake mp3 bytes")), n)
	assert.Equal(t, "ffdl-test", ua)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake mp3 bytes", string(data))
}

func TestDownloader_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "Standup"+Video.Ext)
	d := NewDownloader(Options{})

	_, err := d.Download(context.Background(), srv.URL, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(Options{RetryMax: 2})
	d.client.RetryWaitMin = 0
	d.client.RetryWaitMax = 0

	n, err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x.mp3"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDownloader_UnwritablePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(Options{})
	_, err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "missing", "x.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating media file")
}

func TestDownloader_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(Options{})
	_, err := d.Download(ctx, srv.URL, filepath.Join(t.TempDir(), "x.mp3"))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	require.Len(t, Kinds, 2)
	assert.Equal(t, ".mp3", Kinds[0].Ext)
	assert.Equal(t, ".mp4", Kinds[1].Ext)
}
