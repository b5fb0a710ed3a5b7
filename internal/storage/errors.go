package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedArchive is returned by UploadArchive when the local file is
// neither a tar nor a zip archive. The check runs before any network I/O.
var ErrUnsupportedArchive = errors.New("storage: unsupported archive format")

// APIError is any non-2xx response that was not translated into a more
// specific error by the calling operation. The HTTP exchange itself failed;
// compare TaskError, where the exchange succeeded but the server-side task
// did not.
type APIError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsJSON reports whether the error response carried a structured JSON body.
// Only structured 404s are trusted to mean "this storage path does not
// exist" rather than an unmapped route.
func (e *APIError) IsJSON() bool {
	return strings.HasPrefix(e.ContentType, "application/json")
}

// NotFoundError means the browsed path does not exist in the pre-ingest
// file storage. Message is the server's human-readable explanation.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// TaskError means a server-side task reached "error" status. The request
// that created and polled the task succeeded at the HTTP level; only the
// logical result is a failure. Task carries the full server payload.
type TaskError struct {
	Task *Task
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("storage: task %s failed: %s", e.Task.Identifier, e.Task.Message)
}
