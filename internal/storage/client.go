// Package storage implements a client for the pre-ingest file storage
// REST API: browsing, archive upload, metadata generation, deletion, and
// the asynchronous task-polling protocol shared by the mutating operations.
package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Version is the client version reported in the User-Agent header.
// Overridden at build time via ldflags.
var Version = "dev"

// defaultPollInterval is the courtesy delay between task status fetches.
const defaultPollInterval = 5 * time.Second

// Credentials selects the authentication scheme for outgoing requests.
// A non-empty Token wins over user/password.
type Credentials struct {
	Token    string
	User     string
	Password string
}

// Options configures a Client. Host is required; everything else has a
// usable zero value.
type Options struct {
	// Host is the service base URL, e.g. "https://storage.example.org".
	Host string

	Credentials Credentials

	// VerifyTLS disables certificate verification when false. The client
	// logs an insecure-connection warning at most once per instance.
	VerifyTLS bool

	DefaultProject string

	// PollInterval is the wait between task status fetches. Zero means
	// the server-mandated default of five seconds.
	PollInterval time.Duration

	// MaxPollWait bounds the total time spent polling a single task.
	// Zero means poll until a terminal state or context cancellation.
	MaxPollWait time.Duration

	// OnPoll, when set, is invoked before every task status fetch.
	// Used by the CLI for progress output.
	OnPoll func(task *Task)

	// HTTPClient overrides the transport, mainly for tests. When set,
	// VerifyTLS is ignored.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a pre-ingest file storage client bound to one host. It is safe
// to reuse across sequential operations; it performs no connection-level
// retries so that non-idempotent uploads and deletes are applied at most
// once. The task-polling protocol is the only retry mechanism.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	creds          Credentials
	defaultProject string

	archivesAPI string
	metadataAPI string
	filesAPI    string
	usersAPI    string
	tasksAPI    string

	pollInterval time.Duration
	maxPollWait  time.Duration
	onPoll       func(task *Task)

	verifyTLS    bool
	insecureWarn sync.Once
}

// NewClient creates a storage client from opts.
// Selecting basic auth logs a deprecation warning; token auth is preferred.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("storage: host is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !opts.VerifyTLS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // -k/--insecure opt-in
		}

		httpClient = &http.Client{Transport: transport}
	}

	interval := opts.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}

	host := strings.TrimRight(opts.Host, "/")

	c := &Client{
		httpClient:     httpClient,
		logger:         logger,
		creds:          opts.Credentials,
		defaultProject: opts.DefaultProject,
		archivesAPI:    host + "/v1/archives",
		metadataAPI:    host + "/v1/metadata",
		filesAPI:       host + "/v1/files",
		usersAPI:       host + "/v1/users",
		tasksAPI:       host + "/v1/tasks",
		pollInterval:   interval,
		maxPollWait:    opts.MaxPollWait,
		onPoll:         opts.OnPoll,
		verifyTLS:      opts.VerifyTLS,
	}

	if c.creds.Token == "" {
		logger.Warn("user/password authentication is deprecated, " +
			"create a token in the preservation service web UI and set it as upload.token")
	}

	return c, nil
}

// DefaultProject returns the project configured as the fallback when no
// project is given on the command line. Empty when unset.
func (c *Client) DefaultProject() string {
	return c.defaultProject
}

// newRequest builds a request with authentication and the identifying
// User-Agent header attached.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("storage: creating request: %w", err)
	}

	req.Header.Set("User-Agent",
		fmt.Sprintf("preingest-go/%s (github.com/dpres/preingest-go)", Version))

	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	} else {
		req.SetBasicAuth(c.creds.User, c.creds.Password)
	}

	return req, nil
}

// roundTrip executes req without retries. Non-2xx responses are consumed
// and returned as *APIError; callers that need to intercept a status (the
// browser's structured 404) unwrap with errors.As.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	if !c.verifyTLS {
		c.insecureWarn.Do(func() {
			c.logger.Warn("TLS certificate verification is disabled, connection is not secure",
				slog.String("host", req.URL.Host))
		})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: %s %s: %w", req.Method, req.URL, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode))

		return resp, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		body = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
}

// do is the common path for requests without a streamed body.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return c.roundTrip(req)
}

// getJSON fetches rawURL and decodes the response body into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("storage: decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// normalizePath strips leading and trailing separators from a storage path.
// The root path normalizes to "".
func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// resourceURL composes a files API URL for a path within a project.
func (c *Client) resourceURL(project, path string) string {
	return fmt.Sprintf("%s/%s/%s", c.filesAPI, url.PathEscape(project), normalizePath(path))
}
