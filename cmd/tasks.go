package cmd

import (
	"fmt"

	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/internal/output"
	"github.com/spf13/cobra"
)

var flagTaskStatus string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and update tasks",
	Long: `Tasks live under the endpoint group of your role, so an owner sees
/owner/tasks and a vendor /vendor/tasks. Use --role to pick another group.`,
}

var tasksLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		role, err := currentRole()
		if err != nil {
			return err
		}
		page, err := apiClient.ListTasks(cmd.Context(), role, flagTaskStatus)
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), page)
			return nil
		}
		output.TaskTable(cmd.OutOrStdout(), page.Items)
		return nil
	},
}

var tasksStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Change a task's status",
	Long: `Change a task's status to one of: open, in_progress, completed, cancelled.

  propdesk tasks status 42 completed`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		role, err := currentRole()
		if err != nil {
			return err
		}
		task, err := apiClient.UpdateTaskStatus(cmd.Context(), role, args[0], api.UpdateTaskStatusRequest{Status: args[1]})
		if err != nil {
			return err
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), task)
			return nil
		}
		output.Success(cmd.OutOrStdout(), "Task %q is now %s", task.Title, task.Status)
		return nil
	},
}

var tasksRmCmd = &cobra.Command{
	Use:     "rm <task-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		role, err := currentRole()
		if err != nil {
			return err
		}
		if err := apiClient.DeleteTask(cmd.Context(), role, args[0]); err != nil {
			return fmt.Errorf("deleting task %s: %w", args[0], err)
		}
		output.Success(cmd.OutOrStdout(), "Deleted task %s", args[0])
		return nil
	},
}

func init() {
	tasksLsCmd.Flags().StringVar(&flagTaskStatus, "status", "", "Only tasks with this status")

	tasksCmd.AddCommand(tasksLsCmd, tasksStatusCmd, tasksRmCmd)
	rootCmd.AddCommand(tasksCmd)
}
