// Package client is a typed HTTP client for the solver API, used by the
// CLI and the status poller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	api "github.com/studyhall/solver/api/v1alpha1"
)

// Error carries the API's error envelope together with the HTTP status.
type Error struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is an API 409.
func IsConflict(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusConflict
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) CreateAssignment(ctx context.Context, form api.AssignmentForm) (*api.Assignment, error) {
	var out api.Assignment
	if err := c.do(ctx, http.MethodPost, "/api/v1/assignments", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssignment(ctx context.Context, id uuid.UUID) (*api.Assignment, error) {
	var out api.Assignment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAssignments(ctx context.Context) (*api.AssignmentList, error) {
	var out api.AssignmentList
	if err := c.do(ctx, http.MethodGet, "/api/v1/assignments", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Solve(ctx context.Context, id uuid.UUID) (*api.SolveAck, error) {
	var out api.SolveAck
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%s/solve", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Regenerate(ctx context.Context, id uuid.UUID) (*api.SolveAck, error) {
	var out api.SolveAck
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%s/regenerate", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetStatus(ctx context.Context, id uuid.UUID) (*api.SolveAck, error) {
	var out api.SolveAck
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%s/reset-status", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSolution(ctx context.Context, id uuid.UUID) (*api.Solution, error) {
	var out api.Solution
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/assignments/%s/solution", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope api.Error
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.RequestID = envelope.RequestID
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
