package storage

import (
	"archive/tar"
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpres/preingest-go/internal/archive"
)

// writeTarArchive creates a tar archive with one file and returns its path.
func writeTarArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.tar")
	f, err := os.Create(path)
	require.NoError(t, err)

	tw := tar.NewWriter(f)
	content := []byte("foo")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "file1", Mode: 0o600, Size: int64(len(content))}))

	_, err = tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	return path
}

// writeZipArchive creates a zip archive with one file and returns its path.
func writeZipArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("file1")
	require.NoError(t, err)

	_, err = w.Write([]byte("foo"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

func TestUploadArchive_SinglePostWithChecksum(t *testing.T) {
	source := writeTarArchive(t)

	wantSum, err := archive.MD5(source)
	require.NoError(t, err)

	wantBody, err := os.ReadFile(source)
	require.NoError(t, err)

	var posts int
	var gotDir, gotMD5 string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/archives/test_project", r.URL.Path)

		gotDir = r.URL.Query().Get("dir")
		gotMD5 = r.URL.Query().Get("md5")

		var readErr error
		gotBody, readErr = io.ReadAll(r.Body)
		assert.NoError(t, readErr)

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	task, err := client.UploadArchive(context.Background(), "test_project", source, "/target")
	require.NoError(t, err)

	assert.Equal(t, 1, posts, "upload must be a single POST")
	assert.Equal(t, "target", gotDir)
	assert.Equal(t, wantSum, gotMD5, "checksum must cover the full file content")
	assert.Equal(t, wantBody, gotBody)

	// Synchronous 2xx means the work already completed.
	assert.Equal(t, StatusDone, task.Status)
	assert.Empty(t, task.Identifier)
}

func TestUploadArchive_Zip(t *testing.T) {
	source := writeZipArchive(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	task, err := client.UploadArchive(context.Background(), "test_project", source, "/")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, task.Status)
}

func TestUploadArchive_Accepted(t *testing.T) {
	source := writeTarArchive(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"polling_url": "/v1/tasks/123", "message": "processing"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	task, err := client.UploadArchive(context.Background(), "test_project", source, "/target")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, "123", task.Identifier)
}

func TestUploadArchive_UnsupportedFormat(t *testing.T) {
	source := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(source, []byte("not an archive"), 0o600))

	var requests int

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		requests++
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.UploadArchive(context.Background(), "test_project", source, "/target")
	require.ErrorIs(t, err, ErrUnsupportedArchive)
	assert.Equal(t, 0, requests, "invalid archives must fail before any network I/O")
}

func TestUploadArchive_HTTPFailure(t *testing.T) {
	source := writeTarArchive(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error": "quota exceeded"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.UploadArchive(context.Background(), "test_project", source, "/target")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}
