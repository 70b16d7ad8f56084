// Package optimizer is the client for the remote content optimization service.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// Sentinel errors for optimizer client failures.
var (
	ErrNotFound        = errors.New("job not found")
	ErrRequestRejected = errors.New("optimizer rejected request")
	ErrUnreachable     = errors.New("optimizer unreachable")
	ErrTimeout         = errors.New("optimizer request timeout")
	ErrInvalidResponse = errors.New("optimizer returned invalid response")
)

// Client is the interface for talking to the optimization service.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, limit int) ([]models.Job, error)
	DeleteJob(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.Stats, error)
	Info(ctx context.Context) (*ServiceInfo, error)
}

// SubmitRequest is the body of POST /api/content/submit.
type SubmitRequest struct {
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"content_type"`
}

// SubmitResponse is returned once the service has accepted a job.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ServiceInfo is returned by the service root endpoint.
type ServiceInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// StatusError carries the HTTP status and the server-provided detail.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Detail)
}

// HTTPClient implements Client using the service's JSON HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new optimizer HTTP client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/content/submit", req, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %w", ErrRequestRejected, se)
		}
		return nil, err
	}
	if out.JobID == "" {
		return nil, fmt.Errorf("%w: missing job_id", ErrInvalidResponse)
	}
	return &out, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodGet, "/api/content/job/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, mapNotFound(err)
	}
	return &job, nil
}

func (c *HTTPClient) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	path := "/api/content/jobs"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var jobs []models.Job
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		return []models.Job{}, nil
	}
	return jobs, nil
}

func (c *HTTPClient) DeleteJob(ctx context.Context, id string) error {
	return mapNotFound(c.do(ctx, http.MethodDelete, "/api/content/job/"+url.PathEscape(id), nil, nil))
}

func (c *HTTPClient) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) Info(ctx context.Context) (*ServiceInfo, error) {
	var info ServiceInfo
	if err := c.do(ctx, http.MethodGet, "/api/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are returned as *StatusError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// readDetail extracts the "detail" field of an error body, falling back to
// the raw text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		switch d := body.Detail.(type) {
		case string:
			return d
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

// mapNotFound turns a 404 StatusError into ErrNotFound.
func mapNotFound(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, se)
	}
	return err
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
