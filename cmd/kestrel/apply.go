package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/internal/manifest"
)

var applyCmd = &cobra.Command{
	Use:   "apply <manifest.yaml>",
	Short: "Create tasks and groups from a YAML manifest",
	Long: `Apply a declarative task plan.

The manifest's dependency graph is validated before anything is created;
a cyclic manifest is rejected as a whole. Tasks are created blockers
first, then groups.

Manifest shape:
  tasks:
    - id: build
      description: build the service
      subagent_type: coder
    - id: test
      description: run the test suite
      subagent_type: tester
      blocked_by: [build]
  groups:
    - id: release
      task_ids: [build, test]
      join_strategy: all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		created, err := m.Apply(reg)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d tasks\n", len(created))
		return nil
	},
}
