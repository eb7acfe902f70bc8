package cmd

import (
	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/output"
	"github.com/spf13/cobra"
)

// Version is the CLI version, injected at build time:
//
//	go build -ldflags "-X github.com/propdesk/cli/cmd.Version=1.2.3"
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and server version",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverInfo, serverErr := apiClient.Version(cmd.Context())

		if flagJSON {
			type jsonOut struct {
				CLIVersion    string `json:"cliVersion"`
				ServerVersion string `json:"serverVersion,omitempty"`
				APIVersion    string `json:"apiVersion,omitempty"`
				ServerError   string `json:"serverError,omitempty"`
			}
			out := jsonOut{CLIVersion: Version}
			if serverErr == nil {
				out.ServerVersion = serverInfo.Version
				out.APIVersion = serverInfo.APIVersion
			} else {
				out.ServerError = api.UserMessage(serverErr)
			}
			output.JSON(cmd.OutOrStdout(), out)
			return nil
		}

		output.VersionInfo(cmd.OutOrStdout(), Version, serverInfo)
		if serverErr != nil {
			output.Notice(cmd.ErrOrStderr(), "server version", serverErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
