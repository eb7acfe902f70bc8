package cmd

import (
	"fmt"

	"github.com/propdesk/cli/internal/config"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Long: `Remove the stored token and cached profile. The server URL and poll
preferences are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HasToken() && cfg.User == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		cfg.SetSession(nil)
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("clearing credentials: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:    "reset",
	Short:  "Delete the config file entirely",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Clear(); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Config removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(resetCmd)
}
