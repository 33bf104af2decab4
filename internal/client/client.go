// Package client talks to the task API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dderrors "github.com/abatilo/duedate/internal/errors"
	"github.com/abatilo/duedate/internal/task"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API at baseURL. A zero timeout means none.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches every task.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// Upsert creates (ID zero) or updates a task and returns the stored result.
func (c *Client) Upsert(ctx context.Context, t task.Task) (task.Task, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to encode task: %w", err)
	}
	var saved task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &saved); err != nil {
		return task.Task{}, err
	}
	return saved, nil
}

// Delete is rejected locally; the API never removes tasks.
func (c *Client) Delete(_ context.Context, _ int64) error {
	return dderrors.UnsupportedOperationError{Op: "deleting tasks"}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return dderrors.TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dderrors.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return dderrors.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dderrors.APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// errorMessage extracts the API's {"error": ...} or {"detail": ...} message,
// falling back to the raw body or the status line.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}
