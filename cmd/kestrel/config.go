package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cfg)
		}
		fmt.Printf("User config:   %s\n", config.GetUserConfigPath())
		fmt.Printf("State dir:     %s\n", cfg.Registry.StateDir)
		fmt.Printf("Actor:         %s\n", cfg.Registry.Actor)
		fmt.Printf("Archive:       %v\n", cfg.Registry.Archive)
		fmt.Printf("Lock timeout:  %s\n", cfg.Lock.Timeout)
		fmt.Printf("Lock stale:    %s\n", cfg.Lock.Stale)
		fmt.Printf("Retention:     %s\n", cfg.Cleanup.MaxAge)
		return nil
	},
}
