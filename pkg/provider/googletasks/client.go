// Package googletasks is a thin Provider adapter over the Google Tasks v1
// REST API. OAuth token acquisition and refresh happen upstream: this
// package only accepts an already-authenticated *http.Client, typically
// one built from golang.org/x/oauth2's TokenSource. Pagination
// continuation and the notes-metadata-block encoding for rich fields are
// likewise out of scope; ListTasks returns a single page and Notes is
// passed through raw.
package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
)

const baseURL = "https://www.googleapis.com/tasks/v1"

// Client implements provider.Provider against one Google Tasks task list.
type Client struct {
	HTTP     *http.Client
	TaskList string // e.g. "@default"
}

// New returns a Client for the given task list using an already-configured
// HTTP client (expected to attach a valid OAuth2 bearer token per request).
func New(httpClient *http.Client, taskList string) *Client {
	if taskList == "" {
		taskList = "@default"
	}
	return &Client{HTTP: httpClient, TaskList: taskList}
}

// wireTask is the Google Tasks v1 task resource, trimmed to the fields
// that round-trip through CanonicalTask.
type wireTask struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Notes     string `json:"notes,omitempty"`
	Due       string `json:"due,omitempty"` // RFC3339 date-time, date-only precision
	Status    string `json:"status,omitempty"`
	Updated   string `json:"updated,omitempty"`
	Completed string `json:"completed,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

func (c *Client) ListTasks(ctx context.Context, since *time.Time) ([]types.ProviderTask, error) {
	q := url.Values{}
	q.Set("showCompleted", "true")
	q.Set("showHidden", "true")
	if since != nil {
		q.Set("updatedMin", since.UTC().Format(time.RFC3339))
	}

	var page struct {
		Items []wireTask `json:"items"`
	}
	path := fmt.Sprintf("/lists/%s/tasks?%s", url.PathEscape(c.TaskList), q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("googletasks: list: %w", err)
	}

	out := make([]types.ProviderTask, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, types.ProviderTask{ID: item.ID, Task: fromWire(item)})
	}
	return out, nil
}

func (c *Client) UpsertTask(ctx context.Context, input types.ProviderTask) (types.ProviderTask, error) {
	wire := toWire(input.Task)

	var stored wireTask
	if input.ID == "" {
		path := fmt.Sprintf("/lists/%s/tasks", url.PathEscape(c.TaskList))
		if err := c.do(ctx, http.MethodPost, path, wire, &stored); err != nil {
			return types.ProviderTask{}, fmt.Errorf("googletasks: create: %w", err)
		}
	} else {
		path := fmt.Sprintf("/lists/%s/tasks/%s", url.PathEscape(c.TaskList), url.PathEscape(input.ID))
		if err := c.do(ctx, http.MethodPatch, path, wire, &stored); err != nil {
			return types.ProviderTask{}, fmt.Errorf("googletasks: update: %w", err)
		}
	}
	return types.ProviderTask{ID: stored.ID, Task: fromWire(stored)}, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := fmt.Sprintf("/lists/%s/tasks/%s", url.PathEscape(c.TaskList), url.PathEscape(id))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("googletasks: delete: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bytesReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodDelete {
		return nil // delete is idempotent
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fromWire(w wireTask) types.CanonicalTask {
	status := types.StatusActive
	switch {
	case w.Deleted:
		status = types.StatusDeleted
	case w.Status == "completed":
		status = types.StatusCompleted
	}

	task := types.CanonicalTask{
		Title:  w.Title,
		Notes:  w.Notes,
		Status: status,
	}
	if t, err := time.Parse(time.RFC3339, w.Due); err == nil {
		task.DueAt = &t
	}
	if t, err := time.Parse(time.RFC3339, w.Updated); err == nil {
		task.UpdatedAt = t
	}
	return task
}

func toWire(t types.CanonicalTask) wireTask {
	w := wireTask{
		Title: t.Title,
		Notes: t.Notes,
	}
	if t.DueAt != nil {
		w.Due = t.DueAt.UTC().Format(time.RFC3339)
	}
	if t.Status == types.StatusCompleted {
		w.Status = "completed"
	} else {
		w.Status = "needsAction"
	}
	return w
}
