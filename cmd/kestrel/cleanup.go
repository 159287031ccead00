package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/pkg/models"
)

var (
	cleanupMaxAge  time.Duration
	cleanupDryRun  bool
	cleanupArchive bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old finished tasks",
	Long: `Remove completed, failed and cancelled tasks whose last update is
older than the retention window. Queued, running and blocked tasks are
never removed regardless of age.

When the archive is enabled in the configuration, swept tasks and their
audit entries are stored in the archive database before removal.

Examples:
  kestrel cleanup                    # use the configured retention window
  kestrel cleanup --max-age 24h      # override the window
  kestrel cleanup --dry-run          # show what would be removed
  kestrel cleanup --archive          # archive swept tasks for this run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cleanupArchive {
			cfg.Registry.Archive = true
		}
		reg, err := openRegistryWith(cfg)
		if err != nil {
			return err
		}

		maxAge := cleanupMaxAge
		if maxAge <= 0 {
			maxAge = cfg.Cleanup.MaxAge
		}

		if cleanupDryRun {
			cutoff := time.Now().Add(-maxAge)
			var doomed []string
			for _, t := range reg.List(models.TaskFilter{}) {
				switch t.State {
				case models.TaskCompleted, models.TaskFailed, models.TaskCancelled:
					if t.UpdatedAt.Before(cutoff) {
						doomed = append(doomed, t.ID)
					}
				}
			}
			fmt.Printf("Would remove %d tasks: %v\n", len(doomed), doomed)
			return nil
		}

		removed, err := reg.Cleanup(maxAge)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d tasks\n", len(removed))
		for _, id := range removed {
			fmt.Printf("  %s\n", id)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 0, "Retention window (default from config)")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
	cleanupCmd.Flags().BoolVar(&cleanupArchive, "archive", false, "Archive swept tasks even when the config has archiving off")
}
