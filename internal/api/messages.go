package api

import (
	"context"
	"net/url"
	"strconv"
)

// SendMessageRequest is the body of POST /tenant/messages/:thread.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

func threadPath(threadID string) string {
	return RoleTenant.Path("messages", url.PathEscape(threadID))
}

// ListMessages fetches the newest limit messages of a thread.
func (c *Client) ListMessages(ctx context.Context, threadID string, limit int) (Page[Message], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.GetRaw(ctx, threadPath(threadID), params)
	if err != nil {
		return Page[Message]{}, err
	}
	return DecodePage[Message](data)
}

// SendMessage posts a message to a thread.
func (c *Client) SendMessage(ctx context.Context, threadID string, req SendMessageRequest) (*Message, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var raw rawJSON
	if err := c.Post(ctx, threadPath(threadID), req, &raw); err != nil {
		return nil, err
	}
	m, err := DecodeOne[Message](raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
