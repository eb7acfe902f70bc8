package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/propdesk/cli/internal/api"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{1099511627776, "1.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatSize(tt.input)
			if got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRelativeTime(t *testing.T) {
	t.Run("just now", func(t *testing.T) {
		got := RelativeTime(time.Now())
		if got != "just now" {
			t.Errorf("expected 'just now', got %q", got)
		}
	})

	t.Run("minutes ago", func(t *testing.T) {
		got := RelativeTime(time.Now().Add(-5 * time.Minute))
		if got != "5m ago" {
			t.Errorf("expected '5m ago', got %q", got)
		}
	})

	t.Run("hours ago", func(t *testing.T) {
		got := RelativeTime(time.Now().Add(-3 * time.Hour))
		if got != "3h ago" {
			t.Errorf("expected '3h ago', got %q", got)
		}
	})

	t.Run("days ago", func(t *testing.T) {
		got := RelativeTime(time.Now().Add(-7 * 24 * time.Hour))
		if got != "7d ago" {
			t.Errorf("expected '7d ago', got %q", got)
		}
	})

	t.Run("date format for old timestamps", func(t *testing.T) {
		old := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		got := RelativeTime(old)
		if got != "2024-01-15" {
			t.Errorf("expected date format, got %q", got)
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer detail string", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Truncate(tt.input, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
			}
		})
	}
}

func sampleEntries() []api.ActivityEntry {
	rid := api.ID("42")
	return []api.ActivityEntry{
		{
			ID:           "2",
			Action:       "update_task",
			ResourceType: "task",
			ResourceID:   &rid,
			Actor:        api.Actor{ID: "9", Email: "ben@example.com"},
			Details:      map[string]interface{}{"status": "completed", "from": "open"},
			IPAddress:    "10.0.0.2",
			CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:           "1",
			Action:       "create_property",
			ResourceType: "property",
			Resource:     &api.ResourceSummary{Title: "Elm Court"},
			Actor:        api.Actor{ID: "7", Name: "Ada Owner"},
			CreatedAt:    time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		},
	}
}

func TestActivityTable(t *testing.T) {
	t.Run("marks new entries", func(t *testing.T) {
		var buf bytes.Buffer
		ActivityTable(&buf, sampleEntries(), func(id string) bool { return id == "2" })

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[1], "*") || !strings.Contains(lines[1], "update_task") {
			t.Errorf("expected first row to be marked new, got %q", lines[1])
		}
		if strings.HasPrefix(lines[2], "*") {
			t.Errorf("expected second row unmarked, got %q", lines[2])
		}
		if !strings.Contains(lines[1], "ben@example.com") || !strings.Contains(lines[1], "task #42") {
			t.Errorf("expected actor email and resource id fallback, got %q", lines[1])
		}
		if !strings.Contains(lines[1], "from=open; status=completed") {
			t.Errorf("expected sorted details, got %q", lines[1])
		}
		if !strings.Contains(lines[2], "Elm Court") || !strings.Contains(lines[2], "Ada Owner") {
			t.Errorf("expected resource title and actor name, got %q", lines[2])
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		ActivityTable(&buf, nil, nil)
		if buf.String() != "No activity found.\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

func TestActivityCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ActivityCSV(&buf, sampleEntries()); err != nil {
		t.Fatalf("ActivityCSV() returned error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0][0] != "Timestamp" || records[0][1] != "Action" {
		t.Errorf("unexpected header %v", records[0])
	}
	row := records[1]
	if row[0] != "2024-03-01T12:00:00Z" || row[3] != "42" || row[6] != "10.0.0.2" {
		t.Errorf("unexpected row %v", row)
	}
	if records[2][3] != "" {
		t.Errorf("expected empty resource id, got %q", records[2][3])
	}
}

func TestMessageThread(t *testing.T) {
	msgs := []api.Message{
		{ID: "m2", Sender: api.Actor{Name: "Manager"}, Body: "Fixed tomorrow", CreatedAt: time.Now()},
		{ID: "m1", Sender: api.Actor{Name: "Tenant"}, Body: "Sink leaks\nplease help", CreatedAt: time.Now().Add(-time.Hour)},
	}
	var buf bytes.Buffer
	MessageThread(&buf, msgs, func(id string) bool { return id == "m2" })
	out := buf.String()

	if strings.Index(out, "Tenant") > strings.Index(out, "Manager") {
		t.Errorf("expected oldest message first:\n%s", out)
	}
	if !strings.Contains(out, "    please help") {
		t.Errorf("expected indented continuation line:\n%s", out)
	}
	if !strings.Contains(out, "* Manager") {
		t.Errorf("expected new marker on latest message:\n%s", out)
	}
}

func TestTaskAndPropertyTables(t *testing.T) {
	var buf bytes.Buffer
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	TaskTable(&buf, []api.Task{{ID: "t1", Title: "Fix boiler", PropertyID: "p1", Status: api.TaskOpen, DueAt: &due, UpdatedAt: time.Now()}})
	if !strings.Contains(buf.String(), "Fix boiler") || !strings.Contains(buf.String(), "2024-05-01") {
		t.Errorf("unexpected task table:\n%s", buf.String())
	}

	buf.Reset()
	PropertyTable(&buf, []api.Property{{ID: "p1", Title: "Elm Court", Address: "12 Elm St", Rent: 1250, CreatedAt: time.Now()}})
	if !strings.Contains(buf.String(), "1250.00") || !strings.Contains(buf.String(), "12 Elm St") {
		t.Errorf("unexpected property table:\n%s", buf.String())
	}

	buf.Reset()
	PropertyTable(&buf, nil)
	if buf.String() != "No properties found.\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFeedHeader(t *testing.T) {
	var buf bytes.Buffer
	FeedHeader(&buf, "Activity", 20, 57, time.Time{}, "running")
	want := "Activity  (20 of 57, updated never, running)\n\n"
	if buf.String() != want {
		t.Errorf("FeedHeader() = %q, want %q", buf.String(), want)
	}
}

func TestErrorPanel(t *testing.T) {
	var buf bytes.Buffer
	ErrorPanel(&buf, "Could not load activity", &api.APIError{Status: 500, Message: "database unavailable"}, true)
	out := buf.String()
	if !strings.Contains(out, "database unavailable") {
		t.Errorf("expected server message verbatim:\n%s", out)
	}
	if !strings.Contains(out, "retry") {
		t.Errorf("expected retry hint:\n%s", out)
	}

	buf.Reset()
	ErrorPanel(&buf, "Could not load activity", &api.NetworkError{Method: "GET", URL: "http://x", Err: errors.New("refused")}, false)
	if strings.Contains(buf.String(), "retry") {
		t.Errorf("expected no retry hint:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "could not reach the server") {
		t.Errorf("expected network wording:\n%s", buf.String())
	}
}

func TestRetryAnswer(t *testing.T) {
	for _, in := range []string{"", "  ", "retry", " Y ", "R\r\n"} {
		if !RetryAnswer(in) {
			t.Errorf("RetryAnswer(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"q", "quit", "no", "later", "ready", "yep"} {
		if RetryAnswer(in) {
			t.Errorf("RetryAnswer(%q) = true, want false", in)
		}
	}
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	Notice(&buf, "send message", &api.APIError{Status: 403, Message: "thread is closed"})
	if buf.String() != "! send message: thread is closed\n" {
		t.Errorf("unexpected notice %q", buf.String())
	}
}
