package api

import (
	"context"
	"net/url"
)

// Task statuses accepted by the server.
const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

// UpdateTaskStatusRequest is the body of PATCH /:role/tasks/:id.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress completed cancelled"`
}

// ListTasks fetches the tasks of the role's endpoint group.
func (c *Client) ListTasks(ctx context.Context, role Role, status string) (Page[Task], error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	data, err := c.GetRaw(ctx, role.Path("tasks"), params)
	if err != nil {
		return Page[Task]{}, err
	}
	return DecodePage[Task](data)
}

// UpdateTaskStatus changes a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, role Role, taskID string, req UpdateTaskStatusRequest) (*Task, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var raw rawJSON
	if err := c.Patch(ctx, role.Path("tasks", url.PathEscape(taskID)), req, &raw); err != nil {
		return nil, err
	}
	t, err := DecodeOne[Task](raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, role Role, taskID string) error {
	return c.Delete(ctx, role.Path("tasks", url.PathEscape(taskID)), nil)
}
