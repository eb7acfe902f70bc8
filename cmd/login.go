package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/config"
	"github.com/propdesk/cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	flagToken string
	flagEmail string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your property-management server",
	Long: `Authenticate using either an API token or your email and password.

API Token:
  propdesk login --token pd_abc123...

Email and password:
  propdesk login --email you@example.com
  The password is read from the next line of standard input.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&flagToken, "token", "", "API token for direct authentication")
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "Account email for password authentication")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	switch {
	case flagToken != "":
		return loginWithToken(cmd, flagToken)
	case flagEmail != "":
		return loginWithPassword(cmd, flagEmail)
	default:
		return fmt.Errorf("pass --token or --email")
	}
}

func loginWithToken(cmd *cobra.Command, token string) error {
	s := session.New(token)
	client := api.NewClient(settings.ServerURL, s)
	user, err := client.Me(cmd.Context())
	if err != nil {
		if api.IsStatus(err, 401) {
			return fmt.Errorf("invalid token, server returned 401")
		}
		return fmt.Errorf("validating token: %w", err)
	}
	s.Profile = user.Profile()
	return saveLogin(cmd, s, user)
}

func loginWithPassword(cmd *cobra.Command, email string) error {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")

	resp, err := apiClient.Login(cmd.Context(), api.LoginRequest{Email: email, Password: password})
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("login failed: %s", apiErr.Message)
		}
		return err
	}

	s := session.New(resp.Token)
	s.Profile = resp.User.Profile()
	return saveLogin(cmd, s, &resp.User)
}

func saveLogin(cmd *cobra.Command, s *session.Session, user *api.User) error {
	cfg.ServerURL = settings.ServerURL
	cfg.SetSession(s)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if exp, ok := s.ExpiresAt(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s %s (%s), session valid until %s\n",
			user.FirstName, user.LastName, user.Email, exp.Local().Format("2006-01-02 15:04"))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
	return nil
}
