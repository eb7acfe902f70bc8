package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Page is the canonical collection shape. Every list endpoint is normalized
// into a Page right after the fetch, whatever the server sent.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

var errUnknownShape = errors.New("unrecognized collection shape")

// DecodePage accepts a bare JSON array, an {items, total} object, or the
// {success, data, pagination} envelope (whose data may itself be either of
// the first two).
func DecodePage[T any](data []byte) (Page[T], error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Page[T]{Items: []T{}}, nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decoding collection: %w", err)
		}
		return newPage(items, nil), nil

	case '{':
		var shape struct {
			Items      json.RawMessage `json:"items"`
			Total      *int64          `json:"total"`
			Data       json.RawMessage `json:"data"`
			Pagination *Pagination     `json:"pagination"`
		}
		if err := json.Unmarshal(data, &shape); err != nil {
			return Page[T]{}, fmt.Errorf("decoding collection: %w", err)
		}

		if len(shape.Items) > 0 {
			var items []T
			if err := json.Unmarshal(shape.Items, &items); err != nil {
				return Page[T]{}, fmt.Errorf("decoding collection items: %w", err)
			}
			return newPage(items, shape.Total), nil
		}

		if len(shape.Data) > 0 {
			page, err := DecodePage[T](shape.Data)
			if err != nil {
				return Page[T]{}, err
			}
			if shape.Pagination != nil {
				page.Total = shape.Pagination.Total
			}
			return page, nil
		}
	}

	return Page[T]{}, errUnknownShape
}

func newPage[T any](items []T, total *int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{Items: items, Total: int64(len(items))}
	if total != nil {
		p.Total = *total
	}
	return p
}

// DecodeOne accepts either the bare object or the {success, data} envelope.
func DecodeOne[T any](data []byte) (T, error) {
	var zero T
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return zero, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if inner, ok := probe["data"]; ok {
			if _, hasSuccess := probe["success"]; hasSuccess {
				data = inner
			}
		}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}
