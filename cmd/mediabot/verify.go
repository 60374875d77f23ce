package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"mediabot/internal/config"
	"mediabot/internal/schedule"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run startup checks on your MediaBot installation",
		Long: `Verifies that MediaBot's configuration, command database, providers, and
tool registry are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("MediaBot Verify v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'mediabot init' to create a default configuration.\n")
				return fmt.Errorf("1 check(s) failed")
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, 1 failed\n", passed)
				return fmt.Errorf("1 check(s) failed")
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Command database writable
			if err := checkDatabase(cfg.Commands.DBPath); err != nil {
				printFail("Command database", err.Error())
				failed++
			} else {
				printPass("Command database", cfg.Commands.DBPath)
				passed++
			}

			// 4. Providers
			providerCount := 0
			for name, p := range cfg.Providers {
				if !p.Enabled {
					continue
				}
				providerCount++
				if p.APIKey == "" {
					printWarn("Provider: "+name, "enabled but no API key configured")
					warned++
				} else {
					printPass("Provider: "+name, "configured")
					passed++
				}
			}
			if providerCount == 0 {
				printFail("Providers", "no providers enabled")
				failed++
			}

			// 5. Fallback chains have at least one enabled provider
			for task, chain := range cfg.Dispatch.Chains {
				enabled := 0
				for _, name := range chain {
					if p, ok := cfg.Providers[name]; ok && p.Enabled {
						enabled++
					}
				}
				if enabled == 0 {
					printWarn("Chain: "+task, "no enabled providers; requests will fail")
					warned++
				} else {
					printPass("Chain: "+task, fmt.Sprintf("%d provider(s) enabled", enabled))
					passed++
				}
			}

			// 6. Registry integrity against the ack manifest
			acks, err := config.LoadAcks(cfg.Tools.AcksPath)
			if err != nil {
				printFail("Ack manifest", err.Error())
				failed++
			} else {
				registry, regErr := buildRegistry(cfg, nil, schedule.NewScheduler(nil, logger))
				if regErr != nil {
					printFail("Tool registry", regErr.Error())
					failed++
				} else if err := registry.VerifyIntegrity(acks.Required, acks.Acks); err != nil {
					printFail("Registry integrity", err.Error())
					failed++
				} else {
					printPass("Registry integrity", fmt.Sprintf("%d tool(s) verified", len(registry.Names())))
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running MediaBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nMediaBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! MediaBot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _verify_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _verify_test")

	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
