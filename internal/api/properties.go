package api

import (
	"context"
	"net/url"
	"strconv"
)

// PhotoUpload describes a property photo to send as multipart form data.
type PhotoUpload struct {
	Path    string `json:"path" validate:"required,file"`
	Caption string `json:"caption" validate:"max=200"`
}

// ListProperties fetches the properties visible to the session.
func (c *Client) ListProperties(ctx context.Context, limit, offset int) (Page[Property], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	data, err := c.GetRaw(ctx, "/properties", params)
	if err != nil {
		return Page[Property]{}, err
	}
	return DecodePage[Property](data)
}

// SearchProperties runs the server-side property search.
func (c *Client) SearchProperties(ctx context.Context, query string) (Page[Property], error) {
	data, err := c.GetRaw(ctx, "/properties/search", url.Values{"q": {query}})
	if err != nil {
		return Page[Property]{}, err
	}
	return DecodePage[Property](data)
}

// UploadPhoto attaches a photo to a property.
func (c *Client) UploadPhoto(ctx context.Context, propertyID string, up PhotoUpload) error {
	if err := Validate(up); err != nil {
		return err
	}
	extra := map[string]string{}
	if up.Caption != "" {
		extra["caption"] = up.Caption
	}
	return c.Upload(ctx, "/properties/"+url.PathEscape(propertyID)+"/photos", "photo", up.Path, extra, nil)
}
