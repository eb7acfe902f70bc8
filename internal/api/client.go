package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/propdesk/cli/internal/session"
	"github.com/propdesk/cli/pkg/logger"
	"golang.org/x/oauth2"
)

// Client wraps HTTP calls to the property-management API. The session is
// injected by the caller; the client never reads credentials on its own.
type Client struct {
	BaseURL    string
	Session    *session.Session
	HTTPClient *http.Client
}

// NewClient creates a Client from a base URL (e.g. http://localhost:8080) and a session.
// A nil session is treated as anonymous.
func NewClient(baseURL string, sess *session.Session) *Client {
	if sess == nil {
		sess = &session.Session{}
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/") + "/api",
		Session: sess,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute, // generous for photo uploads
		},
	}
}

// Response is the { success, data, error, pagination } envelope some endpoints use.
type Response[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// --- low-level helpers ---

// httpClient returns a client whose transport attaches the session's bearer
// token. Anonymous sessions use the plain client.
func (c *Client) httpClient() *http.Client {
	if !c.Session.Authenticated() {
		return c.HTTPClient
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: c.Session.Token,
		TokenType:   "Bearer",
	})
	return &http.Client{
		Timeout:   c.HTTPClient.Timeout,
		Transport: &oauth2.Transport{Source: src, Base: c.HTTPClient.Transport},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", logger.GenerateRequestID())
	return req, nil
}

// do sends req and returns the response body. Transport failures become
// *NetworkError and non-2xx statuses become *APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	requestID := req.Header.Get("X-Request-ID")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		logger.Debug("http_request_failed", map[string]interface{}{
			"method":     req.Method,
			"path":       req.URL.Path,
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, &NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: fmt.Errorf("reading response: %w", err)}
	}

	logger.Info("http_request", map[string]interface{}{
		"method":      req.Method,
		"path":        req.URL.Path,
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
		"request_id":  requestID,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	data, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}

// GetRaw sends a GET request and returns the raw body, for endpoints whose
// response shape is normalized by the caller.
func (c *Client) GetRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// Get sends a GET request and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// Post sends a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

// Put sends a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

// Patch sends a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPatch, path, body, out)
}

// Delete sends a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil, out)
}

// Upload sends a multipart file upload.
func (c *Client) Upload(ctx context.Context, path, fieldName, filePath string, extraFields map[string]string, out interface{}) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer writer.Close()

		for k, v := range extraFields {
			_ = writer.WriteField(k, v)
		}

		part, err := writer.CreateFormFile(fieldName, fi.Name())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
	}()

	req, err := c.newRequest(ctx, http.MethodPost, path, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.doJSON(req, out)
}

// DownloadToFile streams a GET response body directly to a file on disk.
func (c *Client) DownloadToFile(ctx context.Context, path string, params url.Values, dest string) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp.StatusCode, body)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
