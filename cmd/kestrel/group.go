package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/pkg/models"
)

var (
	groupID       string
	groupStrategy string
	groupQuorum   int
	groupOnFail   string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage task groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <task-id>...",
	Short: "Create a task group",
	Long: `Group existing tasks under a join strategy.

Join strategies: all (default), first, any, any-n (with --quorum), majority.
Group status is always computed live from current member states.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		group, err := reg.CreateGroup(models.GroupSpec{
			ID:           groupID,
			TaskIDs:      args,
			JoinStrategy: models.JoinStrategy(groupStrategy),
			Quorum:       groupQuorum,
			OnFailure:    models.OnFailure(groupOnFail),
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(group)
		}
		fmt.Printf("Created group %s with %d members (%s)\n", group.ID, len(group.TaskIDs), group.JoinStrategy)
		return nil
	},
}

var groupStatusCmd = &cobra.Command{
	Use:   "status <group-id>",
	Short: "Show a group's live status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		status, err := reg.GroupStatus(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(status)
		}
		fmt.Printf("%s: %d total, %d completed, %d running, %d pending, %d failed\n",
			status.GroupID, status.Total, status.Completed, status.Running, status.Pending, status.Failed)
		if status.Satisfied {
			fmt.Println("join strategy satisfied")
		}
		if status.GroupFailed {
			fmt.Println("group failed")
		}
		return nil
	},
}

func init() {
	groupCreateCmd.Flags().StringVar(&groupID, "id", "", "Group id (generated when empty)")
	groupCreateCmd.Flags().StringVar(&groupStrategy, "join", "", "Join strategy: all, first, any, any-n, majority")
	groupCreateCmd.Flags().IntVar(&groupQuorum, "quorum", 0, "Members required by the any-n strategy")
	groupCreateCmd.Flags().StringVar(&groupOnFail, "on-failure", "", "Failure policy: fail-fast or continue")

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupStatusCmd)
}
