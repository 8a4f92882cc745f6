package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
	"github.com/abatilo/clockwork/internal/task"
)

// HTTPClient talks to a clockwork-remote server.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for baseURL. Per-call deadlines come from
// the caller's context; the client timeout is only a backstop.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Upsert(ctx context.Context, userID string, tasks []*task.Task) (UpsertResult, error) {
	var res UpsertResult
	if err := c.do(ctx, "upsert", http.MethodPost, "/v1/tasks/upsert", userID, UpsertRequest{Tasks: tasks}, &res); err != nil {
		return UpsertResult{}, err
	}
	if res.Failed == nil {
		res.Failed = map[string]string{}
	}
	return res, nil
}

func (c *HTTPClient) QueryByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	var tasks []*task.Task
	if err := c.do(ctx, "query", http.MethodGet, "/v1/tasks", userID, nil, &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		t.Normalize()
	}
	return tasks, nil
}

func (c *HTTPClient) DeleteByUser(ctx context.Context, userID string) (int, error) {
	var res DeleteResponse
	if err := c.do(ctx, "delete", http.MethodDelete, "/v1/tasks", userID, nil, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

func (c *HTTPClient) Delete(ctx context.Context, userID, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/v1/tasks/"+url.PathEscape(id), userID, nil, nil)
}

// Health checks that the server is reachable.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", "", nil, nil)
}

// do executes one request. Transport failures and 5xx responses become
// RemoteUnavailableError; a 404 becomes TaskNotFoundError.
func (c *HTTPClient) do(ctx context.Context, op, method, path, userID string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cwerrors.RemoteUnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/v1/tasks/") {
			return cwerrors.TaskNotFoundError{ID: strings.TrimPrefix(path, "/v1/tasks/")}
		}
		return cwerrors.RemoteUnavailableError{
			Op:  op,
			Err: fmt.Errorf("%s: %s", resp.Status, apiErr.Error),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return cwerrors.RemoteUnavailableError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
