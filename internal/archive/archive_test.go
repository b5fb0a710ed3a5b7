package archive

import (
	"archive/tar"
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTar creates a tar archive containing one small file.
func writeTar(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "archive.tar")
	f, err := os.Create(path)
	require.NoError(t, err)

	tw := tar.NewWriter(f)
	content := []byte("foo")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "file1",
		Mode: 0o600,
		Size: int64(len(content)),
	}))

	_, err = tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	return path
}

// writeZip creates a zip archive containing one small file.
func writeZip(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "archive.zip")
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

func TestDetectFormat_Tar(t *testing.T) {
	path := writeTar(t, t.TempDir())

	format, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatTar, format)
}

func TestDetectFormat_Zip(t *testing.T) {
	path := writeZip(t, t.TempDir())

	format, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)
}

func TestDetectFormat_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o600))

	format, err := DetectFormat(path)
	require.NoError(t, err)
	assert.Equal(t, FormatUnknown, format)
}

func TestDetectFormat_MissingFile(t *testing.T) {
	_, err := DetectFormat(filepath.Join(t.TempDir(), "absent.tar"))
	require.Error(t, err)
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "tar", FormatTar.String())
	assert.Equal(t, "zip", FormatZip.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func TestMD5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("foo"), 0o600))

	sum, err := MD5(path)
	require.NoError(t, err)
	assert.Equal(t, "acbd18db4cc2f85cedef654fccc4a4d8", sum)
}

func TestMD5_LargerThanChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big")

	data := make([]byte, digestChunkSize+digestChunkSize/2)
	for i := range data {
		data[i] = byte(i)
	}

	require.NoError(t, os.WriteFile(path, data, 0o600))

	sum, err := MD5(path)
	require.NoError(t, err)
	assert.Len(t, sum, 32)
}
