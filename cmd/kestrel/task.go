package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/pkg/models"
)

var (
	taskID           string
	taskSubagent     string
	taskStory        string
	taskBlockedBy    []string
	taskFilterState  string
	taskFilterType   string
	taskFilterStory  string
	taskResult       string
	taskReason       string
	taskErrorMessage string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, inspect and transition tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Create a task",
	Long: `Create a task for a worker to pick up.

The task starts queued, or blocked when any of its --blocked-by
dependencies has not completed yet. Dependencies may reference tasks that
do not exist yet; a dependency set that would make the graph cyclic
rejects the create.

Examples:
  kestrel task create "write parser" --subagent-type coder
  kestrel task create "review parser" --subagent-type reviewer --blocked-by task-1a2b3c4d`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		task, err := reg.Create(models.TaskSpec{
			ID:           taskID,
			Description:  args[0],
			SubagentType: taskSubagent,
			StoryID:      taskStory,
			BlockedBy:    taskBlockedBy,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(task)
		}
		printTask(task)
		return nil
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		task, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(task)
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		tasks := reg.List(models.TaskFilter{
			State:        models.TaskState(taskFilterState),
			SubagentType: taskFilterType,
			StoryID:      taskFilterStory,
		})
		return printTasks(tasks)
	},
}

var (
	updateDescription string
	updateSubagent    string
	updateStory       string
	updateState       string
	updateResult      string
	updateErrMsg      string
	updateMeta        map[string]string
)

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update task fields",
	Long: `Update one or more task fields.

A --state change goes through the same transition table as the dedicated
commands; failed tasks can only return to queued via "task retry".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		var patch models.TaskPatch
		if cmd.Flags().Changed("description") {
			patch.Description = &updateDescription
		}
		if cmd.Flags().Changed("subagent-type") {
			patch.SubagentType = &updateSubagent
		}
		if cmd.Flags().Changed("story") {
			patch.StoryID = &updateStory
		}
		if cmd.Flags().Changed("state") {
			state := models.TaskState(updateState)
			patch.State = &state
		}
		if cmd.Flags().Changed("result") {
			patch.Result = &updateResult
		}
		if cmd.Flags().Changed("error") {
			patch.Error = &updateErrMsg
		}
		if len(updateMeta) > 0 {
			patch.Metadata = updateMeta
		}
		task, err := reg.Update(args[0], patch)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(task)
		}
		printTask(task)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task and purge it from all dependency lists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		if err := reg.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Move a queued or blocked task to running",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) { return reg.Start(id) }),
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Complete a running task and unblock its dependents",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) {
		return reg.Complete(id, taskResult)
	}),
}

var taskFailCmd = &cobra.Command{
	Use:   "fail <id>",
	Short: "Mark a running task failed",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) {
		return reg.Fail(id, taskErrorMessage)
	}),
}

var taskBlockCmd = &cobra.Command{
	Use:   "block <id>",
	Short: "Block a non-terminal task",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) {
		return reg.Block(id, taskReason)
	}),
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a non-terminal task",
	Args:  cobra.ExactArgs(1),
	RunE: transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) {
		return reg.Cancel(id, taskReason)
	}),
}

var taskRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Requeue a failed task",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunE(func(reg taskTransitioner, id string) (*models.Task, error) { return reg.Retry(id) }),
}

// taskTransitioner is the slice of the registry the transition commands use.
type taskTransitioner interface {
	Start(id string) (*models.Task, error)
	Complete(id, result string) (*models.Task, error)
	Fail(id, errMsg string) (*models.Task, error)
	Block(id, reason string) (*models.Task, error)
	Cancel(id, reason string) (*models.Task, error)
	Retry(id string) (*models.Task, error)
}

// transitionRunE builds a RunE that opens the registry, applies the
// transition and prints the updated task.
func transitionRunE(fn func(reg taskTransitioner, id string) (*models.Task, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		task, err := fn(reg, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(task)
		}
		printTask(task)
		return nil
	}
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskID, "id", "", "Task id (generated when empty)")
	taskCreateCmd.Flags().StringVar(&taskSubagent, "subagent-type", "", "Worker kind that should handle the task (required)")
	taskCreateCmd.Flags().StringVar(&taskStory, "story", "", "External story id to link")
	taskCreateCmd.Flags().StringSliceVar(&taskBlockedBy, "blocked-by", nil, "Task ids that must complete first")
	taskCreateCmd.MarkFlagRequired("subagent-type")

	taskListCmd.Flags().StringVar(&taskFilterState, "state", "", "Filter by state")
	taskListCmd.Flags().StringVar(&taskFilterType, "subagent-type", "", "Filter by worker kind")
	taskListCmd.Flags().StringVar(&taskFilterStory, "story", "", "Filter by story id")

	taskUpdateCmd.Flags().StringVar(&updateDescription, "description", "", "New description")
	taskUpdateCmd.Flags().StringVar(&updateSubagent, "subagent-type", "", "New worker kind")
	taskUpdateCmd.Flags().StringVar(&updateStory, "story", "", "New story id")
	taskUpdateCmd.Flags().StringVar(&updateState, "state", "", "New state (validated against the transition table)")
	taskUpdateCmd.Flags().StringVar(&updateResult, "result", "", "New completion payload")
	taskUpdateCmd.Flags().StringVar(&updateErrMsg, "error", "", "New failure message")
	taskUpdateCmd.Flags().StringToStringVar(&updateMeta, "meta", nil, "Metadata entries to merge (key=value)")

	taskCompleteCmd.Flags().StringVar(&taskResult, "result", "", "Completion payload")
	taskFailCmd.Flags().StringVar(&taskErrorMessage, "error", "", "Failure message")
	taskBlockCmd.Flags().StringVar(&taskReason, "reason", "", "Reason for the transition")
	taskCancelCmd.Flags().StringVar(&taskReason, "reason", "", "Reason for the transition")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskGetCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskFailCmd)
	taskCmd.AddCommand(taskBlockCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskRetryCmd)
}
