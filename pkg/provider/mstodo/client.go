// Package mstodo is a thin Provider adapter over the Microsoft Graph To Do
// API (/me/todo/lists/{id}/tasks). As with googletasks, OAuth refresh,
// delta-query pagination, and RRULE <-> Graph recurrence translation
// happen upstream of this package; it accepts a pre-authenticated
// *http.Client and passes recurrence through as an opaque string.
package mstodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
)

const baseURL = "https://graph.microsoft.com/v1.0"

// Client implements provider.Provider against one Microsoft To Do list.
type Client struct {
	HTTP   *http.Client
	ListID string
}

// New returns a Client for the given To Do list using an already-configured
// HTTP client.
func New(httpClient *http.Client, listID string) *Client {
	return &Client{HTTP: httpClient, ListID: listID}
}

type wireDateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type wireTask struct {
	ID               string                `json:"id,omitempty"`
	Title            string                `json:"title"`
	Body             *wireBody             `json:"body,omitempty"`
	Status           string                `json:"status,omitempty"`
	Importance       string                `json:"importance,omitempty"`
	DueDateTime      *wireDateTimeTimeZone `json:"dueDateTime,omitempty"`
	ReminderDateTime *wireDateTimeTimeZone `json:"reminderDateTime,omitempty"`
	StartDateTime    *wireDateTimeTimeZone `json:"startDateTime,omitempty"`
	Recurrence       json.RawMessage       `json:"recurrence,omitempty"`
	LastModified     *wireDateTimeTimeZone `json:"lastModifiedDateTime,omitempty"`
	Categories       []string              `json:"categories,omitempty"`
	Checklist        []wireChecklistItem   `json:"checklistItems,omitempty"`
}

type wireBody struct {
	Content string `json:"content"`
}

type wireChecklistItem struct {
	DisplayName string `json:"displayName"`
	IsChecked   bool   `json:"isChecked"`
}

func (c *Client) listPath() string {
	return fmt.Sprintf("/me/todo/lists/%s/tasks", url.PathEscape(c.ListID))
}

func (c *Client) ListTasks(ctx context.Context, since *time.Time) ([]types.ProviderTask, error) {
	path := c.listPath()
	if since != nil {
		filter := fmt.Sprintf("lastModifiedDateTime ge %s", since.UTC().Format(time.RFC3339))
		path += "?$filter=" + url.QueryEscape(filter)
	}

	var page struct {
		Value []wireTask `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("mstodo: list: %w", err)
	}

	out := make([]types.ProviderTask, 0, len(page.Value))
	for _, item := range page.Value {
		out = append(out, types.ProviderTask{ID: item.ID, Task: fromWire(item)})
	}
	return out, nil
}

func (c *Client) UpsertTask(ctx context.Context, input types.ProviderTask) (types.ProviderTask, error) {
	wire := toWire(input.Task)

	var stored wireTask
	if input.ID == "" {
		if err := c.do(ctx, http.MethodPost, c.listPath(), wire, &stored); err != nil {
			return types.ProviderTask{}, fmt.Errorf("mstodo: create: %w", err)
		}
	} else {
		path := c.listPath() + "/" + url.PathEscape(input.ID)
		if err := c.do(ctx, http.MethodPatch, path, wire, &stored); err != nil {
			return types.ProviderTask{}, fmt.Errorf("mstodo: update: %w", err)
		}
	}
	return types.ProviderTask{ID: stored.ID, Task: fromWire(stored)}, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := c.listPath() + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("mstodo: delete: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
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
		return nil
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
	switch w.Status {
	case "completed":
		status = types.StatusCompleted
	}

	task := types.CanonicalTask{
		Title:      w.Title,
		Status:     status,
		Importance: types.Importance(w.Importance),
		Categories: w.Categories,
	}
	if w.Body != nil {
		task.Notes = w.Body.Content
	}
	if len(w.Recurrence) > 0 {
		task.Recurrence = string(w.Recurrence)
	}
	if w.DueDateTime != nil {
		if t, err := time.Parse(time.RFC3339, w.DueDateTime.DateTime); err == nil {
			task.DueAt = &t
			task.DueTime = t.Format("15:04")
		}
	}
	if w.ReminderDateTime != nil {
		if t, err := time.Parse(time.RFC3339, w.ReminderDateTime.DateTime); err == nil {
			task.Reminder = &t
		}
	}
	if w.StartDateTime != nil {
		if t, err := time.Parse(time.RFC3339, w.StartDateTime.DateTime); err == nil {
			task.StartAt = &t
		}
	}
	if w.LastModified != nil {
		if t, err := time.Parse(time.RFC3339, w.LastModified.DateTime); err == nil {
			task.UpdatedAt = t
		}
	}
	for _, item := range w.Checklist {
		task.Steps = append(task.Steps, types.Step{Text: item.DisplayName, Checked: item.IsChecked})
	}
	return task
}

func toWire(t types.CanonicalTask) wireTask {
	w := wireTask{
		Title:      t.Title,
		Body:       &wireBody{Content: t.Notes},
		Importance: string(t.Importance),
		Categories: t.Categories,
	}
	if t.Status == types.StatusCompleted {
		w.Status = "completed"
	} else {
		w.Status = "notStarted"
	}
	if t.DueAt != nil {
		w.DueDateTime = &wireDateTimeTimeZone{DateTime: t.DueAt.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}
	if t.Reminder != nil {
		w.ReminderDateTime = &wireDateTimeTimeZone{DateTime: t.Reminder.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}
	if t.StartAt != nil {
		w.StartDateTime = &wireDateTimeTimeZone{DateTime: t.StartAt.UTC().Format(time.RFC3339), TimeZone: "UTC"}
	}
	if t.Recurrence != "" {
		w.Recurrence = json.RawMessage(t.Recurrence)
	}
	for _, step := range t.Steps {
		w.Checklist = append(w.Checklist, wireChecklistItem{DisplayName: step.Text, IsChecked: step.Checked})
	}
	return w
}
