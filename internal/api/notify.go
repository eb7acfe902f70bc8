package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/propdesk/cli/pkg/logger"
)

// Notification is one push event from the notifications socket.
type Notification struct {
	UserID  string          `json:"user_id"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NotificationsURL derives the websocket URL from the client's base URL.
func (c *Client) NotificationsURL() (string, error) {
	u, err := url.Parse(c.BaseURL + "/ws/notifications")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// SubscribeNotifications opens the notifications socket. The returned channel
// is closed when ctx is done or the connection drops.
func (c *Client) SubscribeNotifications(ctx context.Context) (<-chan Notification, error) {
	wsURL, err := c.NotificationsURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.Session.Authenticated() {
		header.Set("Authorization", "Bearer "+c.Session.Token)
	}
	header.Set("X-Request-ID", logger.GenerateRequestID())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.ToLower(http.StatusText(resp.StatusCode))}
		}
		return nil, &NetworkError{Method: http.MethodGet, URL: wsURL, Err: err}
	}

	out := make(chan Notification, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	go func() {
		defer close(out)
		defer close(done)
		for {
			var n Notification
			if err := conn.ReadJSON(&n); err != nil {
				if ctx.Err() == nil {
					logger.WarnErr("notifications_read_failed", err, nil)
				}
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
