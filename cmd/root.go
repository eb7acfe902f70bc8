package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/config"
	"github.com/propdesk/cli/internal/session"
	"github.com/propdesk/cli/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	flagJSON      bool
	flagServerURL string
	flagRole      string
	flagVerbose   bool
	flagLogFile   string
	flagEnvFile   string

	cfg       *config.Config
	settings  config.Settings
	sess      *session.Session
	apiClient *api.Client
	logFile   *os.File
)

var rootCmd = &cobra.Command{
	Use:   "propdesk",
	Short: "propdesk: property management from the terminal",
	Long: `propdesk talks to your property-management server: follow activity as it
happens, read and answer tenant messages, manage properties and tasks.

Get started:
  propdesk login --email you@example.com   Sign in with your password
  propdesk login --token X                 Sign in with an API token
  propdesk activity watch                  Follow the activity feed live
  propdesk tasks ls                        List your tasks`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFiles()...); err != nil {
			return err
		}
		if err := setupLogging(cmd.ErrOrStderr()); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		settings = config.Resolve(cfg)
		if flagServerURL != "" {
			settings.ServerURL = flagServerURL
		}
		if flagRole != "" {
			settings.Role = flagRole
		}

		sess = session.New(settings.Token)
		if cfg.User != nil && settings.Token == cfg.Token {
			p := *cfg.User
			sess.Profile = &p
		}
		apiClient = api.NewClient(settings.ServerURL, sess)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Override server URL (default: from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&flagRole, "role", "", "Endpoint group: admin, owner, tenant, property-manager, vendor (default: your account's role)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log requests and feed activity to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Load environment overrides from this file (default: .env if present)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", api.UserMessage(err))
		return err
	}
	return nil
}

func envFiles() []string {
	if flagEnvFile != "" {
		return []string{flagEnvFile}
	}
	return nil
}

func setupLogging(stderr io.Writer) error {
	level := logger.LevelWarn
	if flagVerbose {
		level = logger.LevelInfo
	}
	if os.Getenv("PROPDESK_DEBUG") != "" {
		level = logger.LevelDebug
	}

	out := stderr
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		out = f
	}
	logger.Init(out, level)
	return nil
}

// requireAuth returns an error if no usable token is configured.
func requireAuth() error {
	err := sess.Check(time.Now())
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return fmt.Errorf("not authenticated, run \"propdesk login\" first")
	case errors.Is(err, session.ErrExpired):
		return fmt.Errorf("session expired, run \"propdesk login\" again")
	}
	return err
}

// currentRole picks the endpoint group: --role, PROPDESK_ROLE, the config
// file, then the cached profile.
func currentRole() (api.Role, error) {
	raw := settings.Role
	if raw == "" {
		raw = sess.Role()
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("no role known for this account, pass --role")
	}
	return api.ParseRole(raw)
}
