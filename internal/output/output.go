package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/session"
)

const (
	newMarker     = "*"
	detailsWidth  = 48
	messageIndent = "    "
)

// JSON prints v as indented JSON.
func JSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ActivityTable prints activity entries newest first as they arrived. Entries
// for which isNew reports true get a leading marker.
func ActivityTable(w io.Writer, entries []api.ActivityEntry, isNew func(id string) bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, " \tWHEN\tACTION\tACTOR\tRESOURCE\tDETAILS")
	for _, e := range entries {
		mark := " "
		if isNew != nil && isNew(e.Key()) {
			mark = newMarker
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark,
			RelativeTime(e.CreatedAt),
			e.Action,
			actorLabel(e.Actor),
			resourceLabel(e),
			Truncate(api.DetailString(e.Details), detailsWidth),
		)
	}
	tw.Flush()
}

// ActivityCSV writes entries in the same column layout as the server export.
func ActivityCSV(w io.Writer, entries []api.ActivityEntry) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "Actor", "Actor Email", "IP Address", "Details"})
	for _, e := range entries {
		resourceID := ""
		if e.ResourceID != nil {
			resourceID = e.ResourceID.String()
		}
		_ = cw.Write([]string{
			e.CreatedAt.Format(time.RFC3339),
			e.Action,
			e.ResourceType,
			resourceID,
			e.Actor.Name,
			e.Actor.Email,
			e.IPAddress,
			api.DetailString(e.Details),
		})
	}
	cw.Flush()
	return cw.Error()
}

// FeedHeader prints the one-line status above a live feed.
func FeedHeader(w io.Writer, title string, shown int, total int64, lastRefresh time.Time, state string) {
	updated := "never"
	if !lastRefresh.IsZero() {
		updated = RelativeTime(lastRefresh)
	}
	count := fmt.Sprintf("%d", shown)
	if total > int64(shown) {
		count = fmt.Sprintf("%d of %d", shown, total)
	}
	fmt.Fprintf(w, "%s  (%s, updated %s, %s)\n\n", title, count, updated, state)
}

// MessageThread prints a thread oldest first, the way it reads.
func MessageThread(w io.Writer, msgs []api.Message, isNew func(id string) bool) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		mark := " "
		if isNew != nil && isNew(m.Key()) {
			mark = newMarker
		}
		fmt.Fprintf(w, "%s %s  %s\n", mark, actorLabel(m.Sender), m.CreatedAt.Local().Format("2006-01-02 15:04"))
		for _, line := range strings.Split(strings.TrimRight(m.Body, "\n"), "\n") {
			fmt.Fprintf(w, "%s%s\n", messageIndent, line)
		}
	}
}

// PropertyTable prints a slice of properties.
func PropertyTable(w io.Writer, props []api.Property) {
	if len(props) == 0 {
		fmt.Fprintln(w, "No properties found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tADDRESS\tSTATUS\tRENT\tCREATED")
	for _, p := range props {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Title, p.Address, dash(p.Status), FormatMoney(p.Rent), RelativeTime(p.CreatedAt))
	}
	tw.Flush()
}

// TaskTable prints a slice of tasks.
func TaskTable(w io.Writer, tasks []api.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPROPERTY\tSTATUS\tASSIGNEE\tDUE\tUPDATED")
	for _, t := range tasks {
		assignee := "-"
		if t.AssigneeID != nil {
			assignee = t.AssigneeID.String()
		}
		due := "-"
		if t.DueAt != nil {
			due = t.DueAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.PropertyID, t.Status, assignee, due, RelativeTime(t.UpdatedAt))
	}
	tw.Flush()
}

// UserInfo prints user details.
func UserInfo(w io.Writer, u api.User) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Name:\t%s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(tw, "Role:\t%s\n", dash(u.Role))
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	tw.Flush()
}

// ProfileInfo prints the cached session profile.
func ProfileInfo(w io.Writer, p *session.Profile) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Name:\t%s\n", dash(p.Name))
	fmt.Fprintf(tw, "Role:\t%s\n", dash(p.Role))
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	tw.Flush()
}

// VersionInfo prints client and (optionally) server version details.
func VersionInfo(w io.Writer, clientVersion string, server *api.VersionInfo) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Client:\t%s\n", clientVersion)
	if server != nil {
		fmt.Fprintf(tw, "Server:\t%s\n", server.Version)
		fmt.Fprintf(tw, "API:\t%s\n", dash(server.APIVersion))
	}
	tw.Flush()
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatMoney prints an amount with two decimals, or "-" when zero.
func FormatMoney(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// RelativeTime formats a timestamp relative to now (e.g. "2h ago", "3d ago").
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func actorLabel(a api.Actor) string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	case a.ID != "":
		return "#" + a.ID.String()
	default:
		return "system"
	}
}

func resourceLabel(e api.ActivityEntry) string {
	if e.Resource != nil && e.Resource.Title != "" {
		return e.Resource.Title
	}
	label := e.ResourceType
	if e.ResourceID != nil && *e.ResourceID != "" {
		label += " #" + e.ResourceID.String()
	}
	return dash(label)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
