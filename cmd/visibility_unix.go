//go:build unix

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/propdesk/cli/pkg/logger"
)

// watchVisibility maps job control onto feed visibility: Ctrl-Z (SIGTSTP)
// hides the view before the process stops, SIGCONT shows it again. The
// returned func stops watching.
func watchVisibility(setVisible func(bool)) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTSTP, syscall.SIGCONT)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				switch sig {
				case syscall.SIGTSTP:
					setVisible(false)
					logger.Debug("view_hidden", nil)
					// Handling SIGTSTP suppresses the default stop, so stop for real.
					_ = syscall.Kill(syscall.Getpid(), syscall.SIGSTOP)
				case syscall.SIGCONT:
					logger.Debug("view_visible", nil)
					setVisible(true)
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
