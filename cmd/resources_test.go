package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/apitest"
	"github.com/stretchr/testify/require"
)

func TestMessagesSend(t *testing.T) {
	h := newHarness(t)
	h.signIn("tenant")

	res := h.run("", "messages", "send", "t-1", "the", "sink", "leaks")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Sent message")

	res = h.run("", "messages", "send", "t-1", "again", "--json")
	require.NoError(t, res.err)
	var msg api.Message
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &msg))
	require.Equal(t, "again", msg.Body)
	require.Equal(t, api.ID("t-1"), msg.ThreadID)

	res = h.run("", "messages", "send", "t-1", strings.Repeat("x", 4001))
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "body")
	require.Len(t, h.srv.RequestsTo("/api/tenant/messages/t-1"), 2, "invalid messages are never sent")

	activity := h.run("", "activity", "ls", "--role", "admin", "--action", "send_message")
	require.NoError(t, activity.err)
	require.Equal(t, 2, strings.Count(activity.stdout, "send_message"))
}

func TestMessagesWatch(t *testing.T) {
	h := newHarness(t)
	h.signIn("tenant")
	h.srv.AddMessage(apitest.MessageRecord{ThreadID: "t-1", SenderName: "Pat Manager", Body: "Plumber comes Tuesday"})
	h.srv.AddMessage(apitest.MessageRecord{ThreadID: "t-2", SenderName: "Pat Manager", Body: "Rent reminder"})

	w := h.watch("messages", "watch", "t-1", "--json", "--no-poll")
	first := waitFrame(w, func(f feedFrame[api.Message]) bool { return len(f.Entries) == 1 })
	require.Equal(t, "Plumber comes Tuesday", first.Entries[0].Body)

	w.send("s Thanks, I will be home")
	f := waitFrame(w, func(f feedFrame[api.Message]) bool { return len(f.Entries) == 2 })
	require.Equal(t, "Thanks, I will be home", f.Entries[0].Body)
	require.Equal(t, []string{string(f.Entries[0].ID)}, f.New)

	w.send("s")
	require.Eventually(t, func() bool { return strings.Contains(w.stderr.String(), "! send:") }, waitFor, tickEvery)

	w.send("f t-2")
	f = waitFrame(w, func(f feedFrame[api.Message]) bool {
		return len(f.Entries) == 1 && f.Entries[0].Body == "Rent reminder"
	})
	require.Empty(t, f.New)

	w.quit()
}

func TestMessagesWatchRendersThread(t *testing.T) {
	h := newHarness(t)
	h.signIn("tenant")
	h.srv.AddMessage(apitest.MessageRecord{ThreadID: "t-1", SenderName: "Pat Manager", Body: "first"})
	h.srv.AddMessage(apitest.MessageRecord{ThreadID: "t-1", SenderName: "Pat Manager", Body: "second"})

	w := h.watch("messages", "watch", "t-1", "--no-poll")
	require.Eventually(t, func() bool { return strings.Contains(w.stdout.String(), "second") }, waitFor, tickEvery)
	out := w.stdout.String()
	require.Contains(t, out, "Messages  (2, updated")
	require.Less(t, strings.Index(out, "first"), strings.Index(out, "second"), "oldest first")

	w.quit()
}

func TestProperties(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	maple := h.srv.AddProperty(apitest.PropertyRecord{Title: "Maple Court", Address: "1 Maple St", Rent: 1200})
	h.srv.AddProperty(apitest.PropertyRecord{Title: "Elm House", Address: "9 Elm Rd"})

	res := h.run("", "properties", "ls")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Maple Court")
	require.Contains(t, res.stdout, "Elm House")

	res = h.run("", "properties", "ls", "--search", "maple")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Maple Court")
	require.NotContains(t, res.stdout, "Elm House")

	res = h.run("", "properties", "search", "elm", "--json")
	require.NoError(t, res.err)
	var page api.Page[api.Property]
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "Elm House", page.Items[0].Title)

	dir := t.TempDir()
	front := filepath.Join(dir, "front.jpg")
	back := filepath.Join(dir, "back.jpg")
	require.NoError(t, os.WriteFile(front, []byte("jpeg-front"), 0o600))
	require.NoError(t, os.WriteFile(back, []byte("jpeg-back"), 0o600))

	res = h.run("", "properties", "upload-photo", "Maple Court", front, back, "--caption", "Spring", "--workers", "2")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Done: 2 uploaded, 0 failed")

	photos := h.srv.Photos(maple.ID.String())
	require.Len(t, photos, 2)
	for _, p := range photos {
		require.Equal(t, "Spring", p.Caption)
	}

	res = h.run("", "properties", "upload-photo", maple.ID.String(), filepath.Join(dir, "missing.jpg"))
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "cannot access")
	require.Len(t, h.srv.Photos(maple.ID.String()), 2)
}

func TestTasks(t *testing.T) {
	h := newHarness(t)
	h.signIn("owner")
	task := h.srv.AddTask(apitest.TaskRecord{Role: "owner", Title: "Fix sink", PropertyID: "p-1"})
	h.srv.AddTask(apitest.TaskRecord{Role: "vendor", Title: "Quote roof"})

	res := h.run("", "tasks", "ls")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Fix sink")
	require.NotContains(t, res.stdout, "Quote roof")

	res = h.run("", "tasks", "ls", "--status", "completed")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "No tasks found.")

	id := task.ID.String()
	res = h.run("", "tasks", "status", id, "done")
	require.Error(t, res.err)
	require.Empty(t, h.srv.RequestsTo("/api/owner/tasks/"+id), "invalid statuses are never sent")

	res = h.run("", "tasks", "status", id, "completed")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, `Task "Fix sink" is now completed`)

	res = h.run("", "tasks", "ls", "--status", "completed")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Fix sink")

	res = h.run("", "tasks", "rm", id)
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "Deleted task "+id)

	res = h.run("", "tasks", "rm", id)
	require.Error(t, res.err)
	require.Contains(t, res.err.Error(), "task not found")

	res = h.run("", "tasks", "ls")
	require.NoError(t, res.err)
	require.Contains(t, res.stdout, "No tasks found.")
}
