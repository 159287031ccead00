package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/internal/tui"
	"github.com/kestreldev/kestrel/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live task board",
	Long: `Display a live board of all tasks, refreshed whenever any process
mutates the registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, cfg, err := openRegistry()
		if err != nil {
			return err
		}

		watcher, err := watch.New(reg.StatePath())
		if err != nil {
			// Fall back to polling alone.
			watcher = nil
		} else {
			defer watcher.Close()
		}

		board := tui.NewBoard(reg, watcher, cfg.Watch.RefreshRate)
		p := tea.NewProgram(board, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run watch board: %w", err)
		}
		return nil
	},
}
