// Package archive validates local archive files and computes the content
// checksum the pre-ingest file storage expects alongside an upload.
package archive

import (
	"archive/tar"
	"archive/zip"
	"crypto/md5" //nolint:gosec // the storage API verifies uploads by md5
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// digestChunkSize is the buffer size used when hashing a file, bounding
// memory usage regardless of archive size.
const digestChunkSize = 1 << 20 // 1 MiB

// Format identifies a supported archive container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatZip
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatZip:
		return "zip"
	default:
		return "unknown"
	}
}

// DetectFormat determines whether the file at path is a tar or zip archive
// by inspecting its content, never its extension. Returns FormatUnknown
// (with a nil error) when the file exists but is neither format.
func DetectFormat(path string) (Format, error) {
	if _, err := os.Stat(path); err != nil {
		return FormatUnknown, err
	}

	if isZip(path) {
		return FormatZip, nil
	}

	if isTar(path) {
		return FormatTar, nil
	}

	return FormatUnknown, nil
}

// isZip reports whether the file parses as a zip archive, including
// locating its end-of-central-directory record.
func isZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()

	return true
}

// isTar reports whether the file starts with a valid tar header.
// An empty tar archive (zero-block terminator only) is also accepted.
func isTar(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	_, err = tar.NewReader(f).Next()

	return err == nil || errors.Is(err, io.EOF)
}

// MD5 returns the hex-encoded md5 digest of the file at path, read in
// fixed-size chunks.
func MD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see package note: protocol-mandated digest
	buf := make([]byte, digestChunkSize)

	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
