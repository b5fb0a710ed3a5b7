package storage

import (
	"context"
	"log/slog"
	"net/http"
)

// Delete removes a file or directory and its metadata from the pre-ingest
// file storage. Directory deletions clean their metadata up in a pollable
// task: a 202 response returns a pending task the caller must wait on with
// WaitTask before considering the delete complete. Any other 2xx response
// means the delete already finished.
func (c *Client) Delete(ctx context.Context, project, path string) (*Task, error) {
	c.logger.Info("deleting resource",
		slog.String("project", project),
		slog.String("path", path))

	resp, err := c.do(ctx, http.MethodDelete, c.resourceURL(project, path))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return taskFromAccepted(resp.Body)
	}

	return &Task{Status: StatusDone}, nil
}
