package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/livesync"
	"github.com/propdesk/cli/internal/output"
	"github.com/propdesk/cli/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const clearScreen = "\033[H\033[2J"

const watchHelp = `Commands (type and press Enter):
  r            refresh now
  /text        search loaded entries, "/" alone clears
  f <filter>   replace the server filter, "f" alone clears it
  i <dur>      change the poll interval, e.g. "i 30s"
  p            pause or resume polling
  s <text>     send a message (message threads only)
  q            quit`

// errQuit ends a watch without reporting an error.
var errQuit = errors.New("quit")

type feedItem interface {
	livesync.Item
	livesync.Searchable
}

// feedSpec describes one live feed to the watch loop.
type feedSpec[T feedItem, F any] struct {
	name   string
	title  string
	fetch  livesync.FetchFunc[T, F]
	filter F
	draw   func(w io.Writer, items []T, isNew func(id string) bool)
	// parseFilter applies the argument of an "f" command to the active filter.
	parseFilter func(ctx context.Context, current F, arg string) (F, error)
	// send posts text to the feed's current filter target.
	send func(ctx context.Context, filter F, text string) error
}

type watchFlags struct {
	interval    time.Duration
	search      string
	noPoll      bool
	push        bool
	metricsAddr string
}

func (f *watchFlags) register(fs *pflag.FlagSet) {
	fs.DurationVar(&f.interval, "interval", 0, "Poll interval (default: from config, 15s)")
	fs.StringVar(&f.search, "search", "", "Only show loaded entries containing this text")
	fs.BoolVar(&f.noPoll, "no-poll", false, "Load once and only refresh on demand")
	fs.BoolVar(&f.push, "push", false, "Also refresh when the server pushes a notification")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

// feedFrame is one --json line of a watched feed.
type feedFrame[T any] struct {
	State       string    `json:"state"`
	Total       int64     `json:"total"`
	LastRefresh time.Time `json:"lastRefresh"`
	New         []string  `json:"new"`
	Entries     []T       `json:"entries"`
}

type feedView[T feedItem] struct {
	title string
	draw  func(w io.Writer, items []T, isNew func(id string) bool)
	json  bool
	clear bool

	mu     sync.Mutex
	out    io.Writer
	search string
	last   livesync.Snapshot[T]
}

func (v *feedView[T]) render(snap livesync.Snapshot[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = snap
	v.drawLocked()
}

func (v *feedView[T]) setSearch(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = strings.TrimSpace(q)
	v.drawLocked()
}

func (v *feedView[T]) drawLocked() {
	snap := v.last
	// Until the first load succeeds the loop shows the error panel instead.
	if !snap.Loaded() {
		return
	}
	items := livesync.Search(snap.Entries, v.search)

	if v.json {
		_ = json.NewEncoder(v.out).Encode(feedFrame[T]{
			State:       snap.State.String(),
			Total:       snap.Total,
			LastRefresh: snap.LastRefresh,
			New:         snap.New.Sorted(),
			Entries:     items,
		})
		return
	}

	if v.clear {
		fmt.Fprint(v.out, clearScreen)
	}
	output.FeedHeader(v.out, v.title, len(items), snap.Total, snap.LastRefresh, snap.State.String())
	if v.search != "" {
		fmt.Fprintf(v.out, "Search %q: %d of %d loaded\n\n", v.search, len(items), len(snap.Entries))
	}
	v.draw(v.out, items, snap.IsNew)
}

type watcher[T feedItem, F any] struct {
	spec   feedSpec[T, F]
	poller *livesync.Poller[T, F]
	view   *feedView[T]
	out    io.Writer
	errOut io.Writer
	lines  <-chan string
	paused bool
}

// runWatch shows spec as a live feed until the user quits or the process is
// interrupted.
func runWatch[T feedItem, F any](cmd *cobra.Command, spec feedSpec[T, F], flags watchFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	view := &feedView[T]{
		title:  spec.title,
		draw:   spec.draw,
		json:   flagJSON,
		clear:  !flagJSON && isTerminal(out),
		out:    out,
		search: strings.TrimSpace(flags.search),
	}

	interval := flags.interval
	if interval <= 0 {
		interval = settings.PollInterval
	}
	p := livesync.New(spec.fetch, spec.filter, livesync.Config{
		Name:         spec.name,
		Interval:     interval,
		HighlightTTL: settings.HighlightTTL,
	}, view.render)
	defer p.Close()

	if flags.metricsAddr != "" {
		shutdown := serveMetrics(flags.metricsAddr, cmd.ErrOrStderr())
		defer shutdown()
	}

	w := &watcher[T, F]{
		spec:   spec,
		poller: p,
		view:   view,
		out:    out,
		errOut: cmd.ErrOrStderr(),
		lines:  readLines(ctx, cmd.InOrStdin()),
		paused: flags.noPoll,
	}

	if err := p.Refresh(ctx); err != nil {
		if err := w.recover(ctx, err); err != nil {
			return finish(err)
		}
	}

	if !flags.noPoll {
		p.Start()
	}
	defer watchVisibility(p.SetVisible)()

	if flags.push {
		w.subscribe(ctx)
	}

	logger.Info("watch_started", map[string]interface{}{
		"feed":     spec.name,
		"interval": interval.String(),
		"polling":  !flags.noPoll,
	})

	for {
		line, ok := w.next(ctx)
		if !ok {
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			// Input closed: keep following until interrupted.
			w.lines = nil
			continue
		}
		if err := w.handle(ctx, line); err != nil {
			return finish(err)
		}
	}
}

func finish(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) || api.IsAbandoned(err) {
		return nil
	}
	return err
}

// next waits for one input line. ok is false once input is closed or ctx is
// done.
func (w *watcher[T, F]) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-w.lines:
		return line, ok
	}
}

// recover shows the error panel for a failed load and retries the same
// request for as long as the user asks to.
func (w *watcher[T, F]) recover(ctx context.Context, err error) error {
	for {
		if api.IsAbandoned(err) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		output.ErrorPanel(w.out, "Could not load "+strings.ToLower(w.spec.title), err, true)

		answer, ok := w.next(ctx)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if !output.RetryAnswer(answer) {
			return errQuit
		}
		if err = w.poller.Retry(ctx); err == nil {
			return nil
		}
	}
}

func (w *watcher[T, F]) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		w.view.setSearch(strings.TrimPrefix(line, "/"))
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit":
		return errQuit

	case "r", "refresh":
		if err := w.poller.Refresh(ctx); err != nil && !api.IsAbandoned(err) {
			output.Notice(w.errOut, "refresh", err)
		}

	case "i", "interval":
		d, err := time.ParseDuration(arg)
		if err != nil || d <= 0 {
			output.Notice(w.errOut, "interval", fmt.Errorf("invalid duration %q", arg))
			return nil
		}
		w.poller.SetInterval(d)
		output.Success(w.errOut, "Polling every %s", d)

	case "f", "filter":
		if w.spec.parseFilter == nil {
			output.Notice(w.errOut, "filter", errors.New("this feed has no server filters"))
			return nil
		}
		f, err := w.spec.parseFilter(ctx, w.poller.Filter(), arg)
		if err != nil {
			output.Notice(w.errOut, "filter", err)
			return nil
		}
		if err := w.poller.SetFilter(ctx, f); err != nil {
			return w.recover(ctx, err)
		}

	case "p", "pause":
		if w.paused {
			w.poller.Start()
			output.Success(w.errOut, "Polling resumed")
		} else {
			w.poller.Stop()
			output.Success(w.errOut, "Polling paused")
		}
		w.paused = !w.paused

	case "s", "send":
		if w.spec.send == nil {
			output.Notice(w.errOut, "send", errors.New("nothing to send to in this feed"))
			return nil
		}
		if err := w.spec.send(ctx, w.poller.Filter(), arg); err != nil {
			output.Notice(w.errOut, "send", err)
			return nil
		}
		if err := w.poller.Refresh(ctx); err != nil && !api.IsAbandoned(err) {
			output.Notice(w.errOut, "refresh", err)
		}

	case "?", "h", "help":
		fmt.Fprintln(w.errOut, watchHelp)

	default:
		fmt.Fprintf(w.errOut, "Unknown command %q, type ? for help\n", name)
	}
	return nil
}

// subscribe turns server push notifications into background refreshes.
func (w *watcher[T, F]) subscribe(ctx context.Context) {
	events, err := apiClient.SubscribeNotifications(ctx)
	if err != nil {
		output.Notice(w.errOut, "push notifications", err)
		return
	}
	go func() {
		for n := range events {
			logger.Debug("push_nudge", map[string]interface{}{
				"feed": w.spec.name,
				"type": n.Type,
			})
			w.poller.Nudge()
		}
	}()
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func serveMetrics(addr string, errOut io.Writer) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics_server_started", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", err, map[string]interface{}{"addr": addr})
			output.Notice(errOut, "metrics server", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
