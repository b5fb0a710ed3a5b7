package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sethvargo/go-retry"
)

// TaskState is the lifecycle state of a server-side asynchronous task.
// Tasks start pending and transition only via polling; done and error are
// terminal.
type TaskState string

const (
	StatusPending TaskState = "pending"
	StatusDone    TaskState = "done"
	StatusError   TaskState = "error"
)

// Task tracks a server-side asynchronous operation (archive extraction,
// metadata generation, deletion cleanup).
type Task struct {
	// Identifier is empty when the operation completed synchronously.
	Identifier string
	Status     TaskState

	// Message is the server's human-readable status message, when present.
	Message string

	// Payload holds all fields of the last task status response.
	Payload map[string]any
}

// errTaskPending marks a poll attempt that found the task still pending.
var errTaskPending = errors.New("storage: task still pending")

// acceptedResponse is the body of a 202 response from a mutating operation.
type acceptedResponse struct {
	PollingURL string `json:"polling_url"`
}

// taskFromAccepted turns a 202 response body into a pending task handle.
// The task identifier is the last segment of the polling URL.
func taskFromAccepted(body io.Reader) (*Task, error) {
	var accepted acceptedResponse
	if err := json.NewDecoder(body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("storage: decoding accepted response: %w", err)
	}

	trimmed := strings.Trim(accepted.PollingURL, "/")
	segments := strings.Split(trimmed, "/")

	id := segments[len(segments)-1]
	if id == "" {
		return nil, fmt.Errorf("storage: accepted response has no polling URL")
	}

	return &Task{Identifier: id, Status: StatusPending}, nil
}

// TaskStatus fetches the current state of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	var payload map[string]any
	if err := c.getJSON(ctx, c.tasksAPI+"/"+taskID, &payload); err != nil {
		return nil, err
	}

	task := &Task{Identifier: taskID, Payload: payload}

	if status, ok := payload["status"].(string); ok {
		task.Status = TaskState(status)
	}

	if message, ok := payload["message"].(string); ok {
		task.Message = message
	}

	return task, nil
}

// WaitTask polls task until it reaches a terminal state, waiting the
// client's poll interval between status fetches. A task ending in "error"
// returns *TaskError with the full server payload. When the client has a
// MaxPollWait budget and the task is still pending at its end, the pending
// task is returned together with a descriptive error; with a zero budget
// polling continues until a terminal state or context cancellation.
func (c *Client) WaitTask(ctx context.Context, task *Task) (*Task, error) {
	if task == nil || task.Status == StatusDone {
		return task, nil
	}

	if task.Status == StatusError {
		return task, &TaskError{Task: task}
	}

	current := task

	var backoff retry.Backoff = retry.NewConstant(c.pollInterval)
	if c.maxPollWait > 0 {
		backoff = retry.WithMaxDuration(c.maxPollWait, backoff)
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if c.onPoll != nil {
			c.onPoll(current)
		}

		next, err := c.TaskStatus(ctx, current.Identifier)
		if err != nil {
			return err
		}

		current = next

		switch next.Status {
		case StatusPending:
			return retry.RetryableError(errTaskPending)
		case StatusError:
			return &TaskError{Task: next}
		default:
			return nil
		}
	})

	if errors.Is(err, errTaskPending) {
		return current, fmt.Errorf("storage: task %s still pending after %s", current.Identifier, c.maxPollWait)
	}

	if err != nil {
		return current, err
	}

	return current, nil
}
