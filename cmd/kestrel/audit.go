package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/internal/archive"
	"github.com/kestreldev/kestrel/pkg/models"
)

var (
	auditTaskID   string
	auditArchived bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the state transition audit trail",
	Long: `Show the chronological audit trail of task state transitions.

With --archived, reads transitions for tasks already swept into the
archive database instead of the live registry document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditArchived {
			return runArchivedAudit()
		}

		reg, _, err := openRegistry()
		if err != nil {
			return err
		}
		entries := reg.AuditTrail(models.AuditFilter{TaskID: auditTaskID})
		return printAudit(entries)
	},
}

func runArchivedAudit() error {
	if auditTaskID == "" {
		return fmt.Errorf("--archived requires --task")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := archive.Open(archive.Path(cfg.Registry.StateDir))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}
	entries, err := db.AuditTrail(auditTaskID)
	if err != nil {
		return err
	}
	return printAudit(entries)
}

func printAudit(entries []models.AuditLogEntry) error {
	if flagJSON {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No audit entries.")
		return nil
	}
	for _, e := range entries {
		from := string(e.FromState)
		if from == "" {
			from = "(created)"
		}
		line := fmt.Sprintf("%s  %s  %s -> %s", e.At.Format("2006-01-02 15:04:05"), e.TaskID, from, e.ToState)
		if e.Actor != "" {
			line += "  by " + e.Actor
		}
		fmt.Println(line)
	}
	return nil
}

func init() {
	auditCmd.Flags().StringVar(&auditTaskID, "task", "", "Filter by task id")
	auditCmd.Flags().BoolVar(&auditArchived, "archived", false, "Read the archive database")
}
