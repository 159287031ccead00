package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestreldev/kestrel/internal/archive"
	"github.com/kestreldev/kestrel/internal/config"
	"github.com/kestreldev/kestrel/internal/logging"
	"github.com/kestreldev/kestrel/internal/registry"
)

var (
	flagStateDir string
	flagActor    string
	flagDebug    bool
	flagJSON     bool
)

// registryFactory caches registry instances for the lifetime of the
// process. Commands resolve their registry through it instead of a
// package-level singleton.
var registryFactory = registry.NewFactory()

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Multi-agent task coordination registry",
	Long: `Kestrel tracks units of work assigned to named workers, enforces a
task lifecycle, maintains a dependency graph with cycle prevention,
automatically unblocks dependents when blockers finish, and persists
everything durably with cross-process locking.

State lives in a project-local .kestrel directory. Multiple short-lived
processes can mutate the same registry safely: every mutation is
serialized through an advisory file lock and written atomically.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "State directory (default .kestrel)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Actor recorded on audit entries")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Write debug logs to the state directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the effective configuration with flag overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagStateDir != "" {
		cfg.Registry.StateDir = flagStateDir
	}
	if flagActor != "" {
		cfg.Registry.Actor = flagActor
	}
	return cfg, nil
}

// openRegistry resolves the configured registry through the factory.
func openRegistry() (*registry.Registry, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	reg, err := openRegistryWith(cfg)
	if err != nil {
		return nil, nil, err
	}
	return reg, cfg, nil
}

// openRegistryWith builds registry options from an already-loaded (and
// possibly command-adjusted) configuration.
func openRegistryWith(cfg *config.Config) (*registry.Registry, error) {
	opts := registry.Options{
		RootDir:     cfg.Registry.StateDir,
		LockTimeout: cfg.Lock.Timeout,
		LockStale:   cfg.Lock.Stale,
		Actor:       cfg.Registry.Actor,
	}

	if cfg.Registry.Archive {
		db, err := archive.Open(archive.Path(cfg.Registry.StateDir))
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate archive: %w", err)
		}
		opts.Archiver = db
	}

	if flagDebug {
		logger, err := logging.NewDebugLogger(filepath.Join(cfg.Registry.StateDir, "logs", "debug.log"))
		if err != nil {
			return nil, err
		}
		opts.Logf = logger.Log
	}

	return registryFactory.Get(opts, false)
}
