package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/livesync"
	"github.com/propdesk/cli/internal/output"
	"github.com/propdesk/cli/internal/resolve"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const dateLayout = "2006-01-02"

type activityFlags struct {
	action   string
	resource string
	actor    string
	property string
	query    string
	since    string
	until    string
	limit    int
	offset   int
}

func (f *activityFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.action, "action", "", "Only entries with this action, e.g. login")
	fs.StringVar(&f.resource, "resource", "", "Only entries about this resource ID")
	fs.StringVar(&f.actor, "actor", "", "Only entries by this user ID")
	fs.StringVarP(&f.property, "property", "p", "", "Only entries of this property (ID or exact title)")
	fs.StringVarP(&f.query, "query", "q", "", "Server-side text search")
	fs.StringVar(&f.since, "since", "", "Start date, YYYY-MM-DD")
	fs.StringVar(&f.until, "until", "", "End date, YYYY-MM-DD")
	fs.IntVar(&f.limit, "limit", 50, "Maximum entries to fetch")
	fs.IntVar(&f.offset, "offset", 0, "Entries to skip")
}

// filter builds the request filter. A property reference that is not an ID is
// looked up by title.
func (f *activityFlags) filter(ctx context.Context) (api.ActivityFilter, error) {
	out := api.ActivityFilter{
		Action:     f.action,
		ResourceID: f.resource,
		ActorID:    f.actor,
		Query:      f.query,
		Limit:      f.limit,
		Offset:     f.offset,
	}

	if f.property != "" {
		id, err := resolve.Property(ctx, apiClient, f.property)
		if err != nil {
			return out, err
		}
		out.PropertyID = id
	} else {
		role, err := currentRole()
		if err != nil {
			return out, err
		}
		out.Role = role
	}

	var err error
	if out.StartDate, err = parseDate("since", f.since); err != nil {
		return out, err
	}
	if out.EndDate, err = parseDate("until", f.until); err != nil {
		return out, err
	}
	if out.StartDate != nil && out.EndDate != nil && out.StartDate.After(*out.EndDate) {
		return out, fmt.Errorf("--since must not be after --until")
	}
	return out, nil
}

func parseDate(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", name, s)
	}
	return &t, nil
}

// parseActivityFilter reads the argument of the watch "f" command, a list of
// key=value pairs. A word without "=" continues the previous value, so
// property titles may contain spaces. It replaces every filter field; role
// and limit are kept.
func parseActivityFilter(ctx context.Context, current api.ActivityFilter, arg string) (api.ActivityFilter, error) {
	next := api.ActivityFilter{Role: current.Role, Limit: current.Limit}
	if next.Role == "" && current.PropertyID != "" {
		role, err := currentRole()
		if err != nil {
			return current, err
		}
		next.Role = role
	}
	if arg == "" || arg == "clear" {
		return next, nil
	}

	var keys []string
	vals := map[string]string{}
	for _, field := range strings.Fields(arg) {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			if len(keys) == 0 {
				return current, fmt.Errorf("expected key=value, got %q", field)
			}
			last := keys[len(keys)-1]
			vals[last] += " " + field
			continue
		}
		if val == "" {
			return current, fmt.Errorf("expected key=value, got %q", field)
		}
		keys = append(keys, key)
		vals[key] = val
	}

	for _, key := range keys {
		val := vals[key]
		switch key {
		case "action":
			next.Action = val
		case "resource":
			next.ResourceID = val
		case "actor":
			next.ActorID = val
		case "property":
			id, err := resolve.Property(ctx, apiClient, val)
			if err != nil {
				return current, err
			}
			next.PropertyID = id
		case "q":
			next.Query = val
		case "since", "until":
			t, err := parseDate(key, val)
			if err != nil {
				return current, err
			}
			if key == "since" {
				next.StartDate = t
			} else {
				next.EndDate = t
			}
		default:
			return current, fmt.Errorf("unknown filter %q, use action, resource, actor, property, q, since or until", key)
		}
	}
	if next.StartDate != nil && next.EndDate != nil && next.StartDate.After(*next.EndDate) {
		return current, fmt.Errorf("since must not be after until")
	}
	return next, nil
}

var (
	activityListFlags  activityFlags
	activityWatchFlags activityFlags
	activityExportFlag activityFlags
	activityWatch      watchFlags
	activitySearch     string
	activityFormat     string
	activityExportFmt  string
	activityExportDest string
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"log"},
	Short:   "Browse and follow the activity log",
}

var activityLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List activity entries",
	Long: `List one page of activity entries, newest first. Without --property the
endpoint group of your role is used; admins see everything.

  propdesk activity ls --action login --since 2024-01-01
  propdesk activity ls -p "Maple Court" --format csv > maple.csv
  propdesk activity ls --search invoice    Filter the fetched page locally`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		format, err := listFormat(activityFormat)
		if err != nil {
			return err
		}
		f, err := activityListFlags.filter(cmd.Context())
		if err != nil {
			return err
		}

		page, err := apiClient.ListActivity(cmd.Context(), f)
		if err != nil {
			return err
		}
		entries := livesync.Search(page.Items, activitySearch)

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			output.JSON(out, api.Page[api.ActivityEntry]{Items: entries, Total: page.Total})
		case "csv":
			return output.ActivityCSV(out, entries)
		default:
			output.ActivityTable(out, entries, nil)
			if page.Total > int64(len(page.Items)) {
				fmt.Fprintf(out, "\nShowing %d of %d, use --offset for more.\n", len(page.Items), page.Total)
			}
		}
		return nil
	},
}

var activityWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the activity log live",
	Long: `Show the activity log and keep it fresh. Entries that appear between two
refreshes are marked with * for a while. Polling pauses while the command is
suspended (Ctrl-Z) and catches up as soon as it is resumed.

Type ? and Enter while watching to list the commands.

  propdesk activity watch --interval 30s
  propdesk activity watch --action payment_received --push`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		f, err := activityWatchFlags.filter(cmd.Context())
		if err != nil {
			return err
		}
		return runWatch(cmd, feedSpec[api.ActivityEntry, api.ActivityFilter]{
			name:        "activity",
			title:       "Activity",
			fetch:       apiClient.ListActivity,
			filter:      f,
			draw:        output.ActivityTable,
			parseFilter: parseActivityFilter,
		}, activityWatch)
	},
}

var activityExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the server-side activity export",
	Long: `Download every entry matching the filters as CSV or JSON. Paging flags
are ignored; the server caps the export size.

  propdesk activity export --since 2024-01-01 -o q1.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		format := strings.ToLower(activityExportFmt)
		if format != "csv" && format != "json" {
			return fmt.Errorf("unsupported export format %q, use csv or json", activityExportFmt)
		}
		f, err := activityExportFlag.filter(cmd.Context())
		if err != nil {
			return err
		}

		dest := activityExportDest
		if dest == "" {
			dest = fmt.Sprintf("activity-%s.%s", time.Now().Format("20060102"), format)
		}
		if err := apiClient.ExportActivity(cmd.Context(), f, format, dest); err != nil {
			return err
		}
		output.Success(cmd.OutOrStdout(), "Exported activity to %s", dest)
		return nil
	},
}

// listFormat resolves --format against --json.
func listFormat(format string) (string, error) {
	if flagJSON {
		return "json", nil
	}
	switch f := strings.ToLower(format); f {
	case "", "table":
		return "table", nil
	case "json", "csv":
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q, use table, json or csv", format)
	}
}

func init() {
	activityListFlags.register(activityLsCmd.Flags())
	activityLsCmd.Flags().StringVar(&activitySearch, "search", "", "Only show fetched entries containing this text")
	activityLsCmd.Flags().StringVar(&activityFormat, "format", "table", "Output format: table, json or csv")

	activityWatchFlags.register(activityWatchCmd.Flags())
	activityWatch.register(activityWatchCmd.Flags())

	activityExportFlag.register(activityExportCmd.Flags())
	activityExportCmd.Flags().StringVar(&activityExportFmt, "format", "csv", "Export format: csv or json")
	activityExportCmd.Flags().StringVarP(&activityExportDest, "output", "o", "", "Destination file (default: activity-YYYYMMDD.<format>)")

	activityCmd.AddCommand(activityLsCmd, activityWatchCmd, activityExportCmd)
	rootCmd.AddCommand(activityCmd)
}
