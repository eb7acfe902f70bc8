package cmd

import (
	"fmt"

	"github.com/propdesk/cli/internal/config"
	"github.com/propdesk/cli/internal/output"
	"github.com/spf13/cobra"
)

var flagCached bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authenticated user",
	Long: `Show the signed-in user as the server sees it. The cached profile is
refreshed on the way.

  propdesk whoami            Ask the server
  propdesk whoami --cached   Print the profile stored at login, offline`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		if flagCached {
			if sess.Profile == nil {
				return fmt.Errorf("no cached profile, run without --cached")
			}
			if flagJSON {
				output.JSON(cmd.OutOrStdout(), sess.Profile)
				return nil
			}
			output.ProfileInfo(cmd.OutOrStdout(), sess.Profile)
			return nil
		}

		user, err := apiClient.Me(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		if settings.Token == cfg.Token {
			cfg.User = user.Profile()
			_ = config.Save(cfg)
		}

		if flagJSON {
			output.JSON(cmd.OutOrStdout(), user)
			return nil
		}
		output.UserInfo(cmd.OutOrStdout(), *user)
		return nil
	},
}

func init() {
	whoamiCmd.Flags().BoolVar(&flagCached, "cached", false, "Print the cached profile without contacting the server")
	rootCmd.AddCommand(whoamiCmd)
}
