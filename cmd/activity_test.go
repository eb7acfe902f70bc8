package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/apitest"
	"github.com/stretchr/testify/require"
)

func seedActivity(h *harness) {
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "create_property", ResourceType: "property", ActorName: "Ada Owner", ResourceTitle: "Elm Court"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "tenant", Action: "send_message", ResourceType: "message", ActorName: "Cy Tenant"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "update_task", ResourceType: "task", ActorName: "Ada Owner", Details: map[string]interface{}{"status": "completed"}})
}

func TestActivityLs(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	seedActivity(h)

	res := h.run("", "activity", "ls")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "ACTION")
	require.Contains(t, res.stdout, "update_task")
	require.Contains(t, res.stdout, "create_property")
	require.NotContains(t, res.stdout, "send_message", "owners only see their endpoint group")

	res = h.run("", "activity", "ls", "--search", "elm")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "create_property")
	require.NotContains(t, res.stdout, "update_task")

	res = h.run("", "activity", "ls", "--action", "update_task")
	require.NoError(t, res.err)
	require.NotContains(t, res.stdout, "create_property")
	reqs := h.srv.RequestsTo("/api/owner/activity")
	require.Contains(t, reqs[len(reqs)-1].Query, "action=update_task")

	res = h.run("", "activity", "ls", "--role", "admin", "--json")
	require.NoError(t, res.err)
	var page api.Page[api.ActivityEntry]
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &page))
	require.Len(t, page.Items, 3)
	require.EqualValues(t, 3, page.Total)
}

func TestActivityLsCSV(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	seedActivity(h)

	res := h.run("", "activity", "ls", "--format", "csv")
	require.NoError(t, res.err)
	rows, err := csv.NewReader(strings.NewReader(res.stdout)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Timestamp", rows[0][0])
	require.Equal(t, "update_task", rows[1][1])

	res = h.run("", "activity", "ls", "--format", "yaml")
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "unsupported format")
}

func TestActivityLsByPropertyTitle(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	prop := h.srv.AddProperty(apitest.PropertyRecord{Title: "Maple Court", Address: "1 Maple St"})
	h.srv.AddProperty(apitest.PropertyRecord{Title: "Maple Court Annex"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", PropertyID: prop.ID.String(), Action: "upload_photo", ResourceType: "property"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "login", ResourceType: "user"})

	res := h.run("", "activity", "ls", "--property", "maple court")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "upload_photo")
	require.NotContains(t, res.stdout, "login")
	require.Len(t, h.srv.RequestsTo("/api/properties/"+prop.ID.String()+"/activity"), 1)

	res = h.run("", "activity", "ls", "--property", "Birch House")
	require.Error(t, res.err)
}

func TestActivityLsRejectsBadDates(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")

	res := h.run("", "activity", "ls", "--since", "2024-13-01")
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "invalid since date")

	res = h.run("", "activity", "ls", "--since", "2024-03-01", "--until", "2024-02-01")
	require.Error(t, res.err)
	require.Empty(t, h.srv.RequestsTo("/api/owner/activity"))
}

func TestActivityLsServerError(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	h.srv.FailNext(http.StatusForbidden, `{"error":"owners cannot read this log"}`)

	res := h.run("", "activity", "ls")
	require.Error(t, res.err)
	require.Equal(t, "owners cannot read this log", api.UserMessage(res.err))
}

func TestActivityExport(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	seedActivity(h)
	dest := filepath.Join(t.TempDir(), "log.csv")

	res := h.run("", "activity", "export", "-o", dest, "--since", "2000-01-01")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Exported activity to "+dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	reqs := h.srv.RequestsTo("/api/owner/activity/export")
	require.Len(t, reqs, 1)
	require.Contains(t, reqs[0].Query, "format=csv")
	require.Contains(t, reqs[0].Query, "startDate=2000-01-01")
	require.NotContains(t, reqs[0].Query, "limit=")

	res = h.run("", "activity", "export", "--format", "xml")
	require.Error(t, res.err)
	require.Len(t, h.srv.RequestsTo("/api/owner/activity/export"), 1)
}

func TestParseActivityFilter(t *testing.T) {
	ctx := context.Background()
	current := api.ActivityFilter{Role: api.RoleOwner, Limit: 25, Action: "login"}

	next, err := parseActivityFilter(ctx, current, "action=update_task q=leaky sink since=2024-01-01")
	require.NoError(t, err)
	require.Equal(t, api.RoleOwner, next.Role)
	require.Equal(t, 25, next.Limit)
	require.Equal(t, "update_task", next.Action)
	require.Equal(t, "leaky sink", next.Query)
	require.Equal(t, "2024-01-01", next.StartDate.Format(dateLayout))

	next, err = parseActivityFilter(ctx, current, "")
	require.NoError(t, err)
	require.Equal(t, api.ActivityFilter{Role: api.RoleOwner, Limit: 25}, next)

	_, err = parseActivityFilter(ctx, current, "colour=red")
	require.Error(t, err)
	_, err = parseActivityFilter(ctx, current, "action")
	require.Error(t, err)
	_, err = parseActivityFilter(ctx, current, "until=tomorrow")
	require.Error(t, err)

	next, err = parseActivityFilter(ctx, current, "since=2024-05-01 until=2024-01-01")
	require.Error(t, err)
	require.Contains(t, err.Error(), "since must not be after until")
	require.Equal(t, current, next)
}

func TestActivityWatchFilterByPropertyTitle(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	prop := h.srv.AddProperty(apitest.PropertyRecord{Title: "Maple Court", Address: "1 Maple St"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", PropertyID: prop.ID.String(), Action: "upload_photo", ResourceType: "property"})
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "login", ResourceType: "user"})

	w := h.watch("activity", "watch", "--json", "--no-poll")
	waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 2 })

	w.send("f property=maple court")
	f := waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 1 })
	require.Equal(t, "upload_photo", f.Entries[0].Action)
	require.Len(t, h.srv.RequestsTo("/api/properties/"+prop.ID.String()+"/activity"), 1)

	w.send("f property=Birch House")
	require.Eventually(t, func() bool {
		return strings.Contains(w.stderr.String(), `! filter: no property titled "Birch House"`)
	}, waitFor, tickEvery, w.stderr.String())

	w.quit()
}

func TestActivityWatch(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "create_property", ResourceType: "property", ResourceTitle: "Elm Court"})

	w := h.watch("activity", "watch", "--json", "--interval", "50ms")

	first := waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 1 })
	require.Empty(t, first.New, "the first load is the baseline")

	rec := h.srv.AddActivity(apitest.ActivityRecord{Role: "owner", Action: "update_task", ResourceType: "task"})
	f := waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 2 })
	require.Equal(t, []string{rec.ID.String()}, f.New)
	require.Equal(t, "running", f.State)

	w.send("/elm")
	f = waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 1 })
	require.Equal(t, "create_property", f.Entries[0].Action)
	w.send("/")

	w.send("f action=update_task")
	f = waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool {
		return len(f.Entries) == 1 && f.Entries[0].Action == "update_task"
	})
	require.Empty(t, f.New, "a new filter starts a new baseline")
	reqs := h.srv.RequestsTo("/api/owner/activity")
	require.Contains(t, reqs[len(reqs)-1].Query, "action=update_task")

	w.send("f colour=red")
	w.send("i soon")
	w.send("bogus")
	require.Eventually(t, func() bool {
		out := w.stderr.String()
		return strings.Contains(out, `! filter: unknown filter "colour"`) &&
			strings.Contains(out, `! interval: invalid duration "soon"`) &&
			strings.Contains(out, `Unknown command "bogus"`)
	}, waitFor, tickEvery, w.stderr.String())

	w.send("p")
	require.Eventually(t, func() bool { return strings.Contains(w.stderr.String(), "Polling paused") }, waitFor, tickEvery)

	w.quit()
}

func TestActivityWatchRetriesInitialLoad(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	seedActivity(h)
	h.srv.FailNext(http.StatusInternalServerError, `{"error":"database unavailable"}`)

	w := h.watch("activity", "watch", "--json", "--no-poll", "--action", "update_task")
	require.Eventually(t, func() bool {
		out := w.stdout.String()
		return strings.Contains(out, "database unavailable") && strings.Contains(out, "Press Enter to retry")
	}, waitFor, tickEvery, w.stdout.String())
	require.Empty(t, frames[api.ActivityEntry](w))

	w.send("")
	f := waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 1 })
	require.Equal(t, "update_task", f.Entries[0].Action)
	require.Equal(t, "stopped", f.State)

	reqs := h.srv.RequestsTo("/api/owner/activity")
	require.Len(t, reqs, 2)
	require.Equal(t, reqs[0].Query, reqs[1].Query, "retry repeats the failed request")

	w.quit()
}

func TestActivityWatchFailsWhenInputIsClosed(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	h.srv.FailNext(http.StatusInternalServerError, `{"error":"database unavailable"}`)

	res := h.run("", "activity", "watch", "--json")
	require.Error(t, res.err)
	require.Equal(t, "database unavailable", api.UserMessage(res.err))
	require.Contains(t, res.stdout, "Could not load activity")
	require.Len(t, h.srv.RequestsTo("/api/owner/activity"), 1)
}

func TestActivityWatchQuitFromErrorPanel(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	h.srv.FailNext(http.StatusBadGateway, "<html>bad gateway</html>")

	w := h.watch("activity", "watch", "--no-poll")
	require.Eventually(t, func() bool {
		return strings.Contains(w.stdout.String(), "Could not load activity")
	}, waitFor, tickEvery)

	w.quit()
	require.Len(t, h.srv.RequestsTo("/api/owner/activity"), 1)
}

func TestActivityWatchManualRefreshFailureIsANotice(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	seedActivity(h)

	w := h.watch("activity", "watch", "--json", "--no-poll")
	waitFrame(w, func(f feedFrame[api.ActivityEntry]) bool { return len(f.Entries) == 2 })

	h.srv.FailNext(http.StatusServiceUnavailable, `{"error":"maintenance"}`)
	w.send("r")
	require.Eventually(t, func() bool {
		return strings.Contains(w.stderr.String(), "! refresh: maintenance")
	}, waitFor, tickEvery)
	require.NotContains(t, w.stdout.String(), "Press Enter to retry")

	w.quit()
}
