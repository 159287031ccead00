package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/kestreldev/kestrel/pkg/models"
)

var (
	stateColors = map[models.TaskState]*color.Color{
		models.TaskQueued:    color.New(color.FgHiBlack),
		models.TaskRunning:   color.New(color.FgGreen),
		models.TaskCompleted: color.New(color.FgGreen, color.Bold),
		models.TaskFailed:    color.New(color.FgRed),
		models.TaskBlocked:   color.New(color.FgYellow),
		models.TaskCancelled: color.New(color.FgHiBlack),
	}
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTask writes a one-line human summary of a task.
func printTask(t *models.Task) {
	c, ok := stateColors[t.State]
	if !ok {
		c = color.New()
	}
	fmt.Printf("%s  %s  %s", t.ID, c.Sprintf("%-9s", t.State), t.Description)
	if len(t.BlockedBy) > 0 {
		fmt.Printf("  (blocked by: %v)", t.BlockedBy)
	}
	fmt.Println()
}

// printTasks writes tasks as JSON or a human listing per the --json flag.
func printTasks(tasks []*models.Task) error {
	if flagJSON {
		return printJSON(tasks)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range tasks {
		printTask(t)
	}
	return nil
}
