package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage task dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task-id> <depends-on-id>",
	Short: "Add a dependency edge",
	Long: `Record that a task is blocked by another task.

The dependency graph is revalidated with the proposed edge; an edge that
would introduce a cycle is rejected and nothing changes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		task, err := reg.AddDependency(args[0], args[1])
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

var depRemoveCmd = &cobra.Command{
	Use:   "rm <task-id> <depends-on-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		task, err := reg.RemoveDependency(args[0], args[1])
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

var depGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the dependency graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		export := reg.DependencyGraph()
		if flagJSON {
			return printJSON(export)
		}
		for _, n := range export.Nodes {
			fmt.Println(n)
		}
		for _, e := range export.Edges {
			fmt.Printf("%s -> %s\n", e.From, e.To)
		}
		return nil
	},
}

var depReadyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List tasks ready to run (queued with all blockers completed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		return printTasks(reg.ReadyTasks())
	},
}

var depOrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print tasks in dependency order (blockers first)",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		order, err := reg.TopologicalOrder()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(order)
		}
		for _, id := range order {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depGraphCmd)
	depCmd.AddCommand(depReadyCmd)
	depCmd.AddCommand(depOrderCmd)
}
