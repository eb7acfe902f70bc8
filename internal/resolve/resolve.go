// Package resolve turns the names users type on the command line into the
// server identifiers the API expects.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/propdesk/cli/internal/api"
)

// PropertySearcher is the part of the API client Property needs.
type PropertySearcher interface {
	SearchProperties(ctx context.Context, query string) (api.Page[api.Property], error)
}

// Property converts a property reference to its ID. A UUID or a numeric ID
// is returned as-is; anything else must match exactly one property title,
// ignoring case.
func Property(ctx context.Context, client PropertySearcher, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("property reference is empty")
	}
	if isID(ref) {
		return ref, nil
	}

	page, err := client.SearchProperties(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("looking up %q: %w", ref, err)
	}

	var matches []api.Property
	for _, p := range page.Items {
		if strings.EqualFold(p.Title, ref) {
			matches = append(matches, p)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no property titled %q", ref)
	case 1:
		return string(matches[0].ID), nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = string(m.ID)
		}
		return "", fmt.Errorf("%d properties are titled %q, use an ID instead: %s", len(matches), ref, strings.Join(ids, ", "))
	}
}

func isID(s string) bool {
	if len(s) == 36 {
		if _, err := uuid.Parse(s); err == nil {
			return true
		}
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
