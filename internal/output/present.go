package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/propdesk/cli/internal/api"
)

// ErrorPanel renders a failure of the primary content of a view. retryable
// adds the retry hint that RetryAnswer interprets.
func ErrorPanel(w io.Writer, title string, err error, retryable bool) {
	msg := api.UserMessage(err)
	width := len(title)
	if l := len(msg); l > width {
		width = l
	}
	rule := strings.Repeat("-", width+4)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "  %s\n", msg)
	if retryable {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Press Enter to retry, or q to quit.")
	}
	fmt.Fprintln(w, rule)
}

// RetryAnswer reports whether an answer to the retry prompt asks for a retry:
// an empty line, r, retry, y or yes, in any case.
func RetryAnswer(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "r", "retry", "y", "yes":
		return true
	default:
		return false
	}
}

// Notice prints a one-line transient message for a failed action.
func Notice(w io.Writer, action string, err error) {
	fmt.Fprintf(w, "! %s: %s\n", action, api.UserMessage(err))
}

// Success prints a one-line confirmation.
func Success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}
