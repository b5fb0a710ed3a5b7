package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GenerateMetadata asks the server to generate preservation metadata for
// target and waits for the generation task to finish. The returned
// descriptor comes from a fresh Browse of the same target, since the
// generation response does not carry it.
//
// The storage root uses the dedicated "*" URL form so the server's routing
// does not mistake an empty path for a missing target.
func (c *Client) GenerateMetadata(ctx context.Context, project, target string) (*Resource, error) {
	normalized := normalizePath(target)

	suffix := normalized
	if suffix == "" {
		suffix = "*"
	}

	resp, err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/%s", c.metadataAPI, url.PathEscape(project), suffix))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusAccepted {
		task, err := taskFromAccepted(resp.Body)
		resp.Body.Close()

		if err != nil {
			return nil, err
		}

		if _, err := c.WaitTask(ctx, task); err != nil {
			return nil, err
		}
	} else {
		resp.Body.Close()
	}

	return c.Browse(ctx, project, target)
}
