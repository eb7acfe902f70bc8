package api

import (
	"context"
	"strings"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges credentials for a token. The client's own session is left
// untouched; the caller decides what to persist.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := Validate(req); err != nil {
		return nil, err
	}

	var raw rawJSON
	if err := c.Post(ctx, "/auth/login", req, &raw); err != nil {
		return nil, err
	}
	resp, err := DecodeOne[LoginResponse](raw)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	data, err := c.GetRaw(ctx, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	u, err := DecodeOne[User](data)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Version returns the server version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	data, err := c.GetRaw(ctx, "/version", nil)
	if err != nil {
		return nil, err
	}
	v, err := DecodeOne[VersionInfo](data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// rawJSON captures a response body for later normalization.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
