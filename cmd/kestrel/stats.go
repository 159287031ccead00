package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/pkg/models"
)

var statsFilterStory string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate task counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}

		if statsFilterStory != "" {
			return printTasks(reg.TasksForStory(statsFilterStory))
		}

		stats := reg.Stats()
		if flagJSON {
			return printJSON(stats)
		}

		fmt.Printf("Total tasks: %d\n\n", stats.Total)
		fmt.Println("By state:")
		for _, state := range []models.TaskState{
			models.TaskQueued, models.TaskRunning, models.TaskBlocked,
			models.TaskCompleted, models.TaskFailed, models.TaskCancelled,
		} {
			if n := stats.ByState[state]; n > 0 {
				fmt.Printf("  %-10s %d\n", state, n)
			}
		}

		if len(stats.BySubagentType) > 0 {
			fmt.Println("\nBy subagent type:")
			types := make([]string, 0, len(stats.BySubagentType))
			for t := range stats.BySubagentType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %-16s %d\n", t, stats.BySubagentType[t])
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFilterStory, "story", "", "List tasks linked to a story instead")
}
