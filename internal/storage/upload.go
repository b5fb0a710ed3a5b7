package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/dpres/preingest-go/internal/archive"
)

// UploadArchive streams a local tar or zip archive to the service, which
// extracts it into the target directory. The archive format is validated
// and the content checksum computed before any network I/O, so an invalid
// source never causes a partial upload attempt.
//
// A 202 response means the server extracts asynchronously: the returned
// task is pending and must be waited on with WaitTask. Any other 2xx
// response returns a task already done. The POST is issued exactly once;
// a failed transfer must be restarted by the caller.
func (c *Client) UploadArchive(ctx context.Context, project, source, target string) (*Task, error) {
	format, err := archive.DetectFormat(source)
	if err != nil {
		return nil, fmt.Errorf("storage: checking archive %q: %w", source, err)
	}

	if format == archive.FormatUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArchive, source)
	}

	checksum, err := archive.MD5(source)
	if err != nil {
		return nil, fmt.Errorf("storage: hashing archive %q: %w", source, err)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("storage: opening archive %q: %w", source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: reading archive size: %w", err)
	}

	params := url.Values{
		"dir": {normalizePath(target)},
		"md5": {checksum},
	}
	uploadURL := fmt.Sprintf("%s/%s?%s", c.archivesAPI, url.PathEscape(project), params.Encode())

	c.logger.Info("uploading archive",
		slog.String("project", project),
		slog.String("source", source),
		slog.String("target", target),
		slog.String("format", format.String()),
		slog.Int64("size", info.Size()))

	req, err := c.newRequest(ctx, http.MethodPost, uploadURL, f)
	if err != nil {
		return nil, err
	}

	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return taskFromAccepted(resp.Body)
	}

	return &Task{Status: StatusDone}, nil
}
