//go:build !unix

package cmd

// watchVisibility is a no-op where there is no job control; the view is
// always visible.
func watchVisibility(setVisible func(bool)) func() {
	return func() {}
}
