package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/output"
	"github.com/spf13/cobra"
)

var (
	messagesLimit int
	messagesWatch watchFlags
)

var messagesCmd = &cobra.Command{
	Use:     "messages",
	Aliases: []string{"msg"},
	Short:   "Read and answer tenant message threads",
}

var messagesWatchCmd = &cobra.Command{
	Use:   "watch <thread>",
	Short: "Follow a message thread live",
	Long: `Show a message thread, oldest first, and keep it fresh. New messages are
marked with *. While watching, "s <text>" sends a reply and "f <thread>"
switches to another thread.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		limit := messagesLimit
		return runWatch(cmd, feedSpec[api.Message, string]{
			name:  "messages",
			title: "Messages",
			fetch: func(ctx context.Context, thread string) (api.Page[api.Message], error) {
				return apiClient.ListMessages(ctx, thread, limit)
			},
			filter: args[0],
			draw:   output.MessageThread,
			parseFilter: func(_ context.Context, current, arg string) (string, error) {
				if arg == "" {
					return current, fmt.Errorf("usage: f <thread>")
				}
				return arg, nil
			},
			send: func(ctx context.Context, thread, text string) error {
				_, err := apiClient.SendMessage(ctx, thread, api.SendMessageRequest{Body: text})
				return err
			},
		}, messagesWatch)
	},
}

var messagesSendCmd = &cobra.Command{
	Use:   "send <thread> <text>...",
	Short: "Send a message to a thread",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		body := strings.Join(args[1:], " ")
		msg, err := apiClient.SendMessage(cmd.Context(), args[0], api.SendMessageRequest{Body: body})
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), msg)
			return nil
		}
		output.Success(cmd.OutOrStdout(), "Sent message %s", msg.ID)
		return nil
	},
}

func init() {
	messagesWatchCmd.Flags().IntVar(&messagesLimit, "limit", 50, "Number of recent messages to show")
	messagesWatch.register(messagesWatchCmd.Flags())

	messagesCmd.AddCommand(messagesWatchCmd, messagesSendCmd)
	rootCmd.AddCommand(messagesCmd)
}
