package resolve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/session"
)

func TestIsID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"00000000-0000-0000-0000-000000000000", true},
		{"ABCDEF01-2345-6789-ABCD-EF0123456789", true},
		{"42", true},
		{"not-a-uuid", false},
		{"550e8400e29b41d4a716446655440000", false},
		{"", false},
		{"550e8400-e29b-41d4-a716-44665544000", false},
		{"gggggggg-gggg-gggg-gggg-gggggggggggg", false},
		{"-1", false},
		{"Elm Court", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := isID(tt.input)
			if got != tt.want {
				t.Errorf("isID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func searchServer(t *testing.T, props []api.Property) *api.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/properties/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := strings.ToLower(r.URL.Query().Get("q"))
		var out []api.Property
		for _, p := range props {
			if strings.Contains(strings.ToLower(p.Title), q) {
				out = append(out, p)
			}
		}
		_ = json.NewEncoder(w).Encode(api.Response[[]api.Property]{Success: true, Data: out})
	}))
	t.Cleanup(server.Close)
	return api.NewClient(server.URL, session.New("test-token"))
}

func TestProperty(t *testing.T) {
	ctx := context.Background()

	t.Run("empty reference is an error", func(t *testing.T) {
		if _, err := Property(ctx, nil, "   "); err == nil {
			t.Fatal("expected error for empty reference")
		}
	})

	t.Run("UUID passthrough", func(t *testing.T) {
		id := "550e8400-e29b-41d4-a716-446655440000"
		got, err := Property(ctx, nil, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != id {
			t.Errorf("expected %q, got %q", id, got)
		}
	})

	t.Run("resolves title via search", func(t *testing.T) {
		client := searchServer(t, []api.Property{
			{ID: "p-1", Title: "Elm Court"},
			{ID: "p-2", Title: "Elm Court Annex"},
		})
		got, err := Property(ctx, client, "elm court")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "p-1" {
			t.Errorf("expected p-1, got %q", got)
		}
	})

	t.Run("no exact match", func(t *testing.T) {
		client := searchServer(t, []api.Property{{ID: "p-2", Title: "Elm Court Annex"}})
		if _, err := Property(ctx, client, "Elm"); err == nil {
			t.Fatal("expected error when only partial matches exist")
		}
	})

	t.Run("ambiguous title", func(t *testing.T) {
		client := searchServer(t, []api.Property{
			{ID: "p-1", Title: "Flat 2"},
			{ID: "p-9", Title: "flat 2"},
		})
		_, err := Property(ctx, client, "Flat 2")
		if err == nil || !strings.Contains(err.Error(), "p-1, p-9") {
			t.Fatalf("expected ambiguity error listing ids, got %v", err)
		}
	})
}
