package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shkienao-pixel/UNSW-Exam-Master/internal/jobs"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and apply schema migrations",
}

func newRunner() (*migrate.Runner, error) {
	return migrate.New(migrate.Config{
		DBPath:     cfg.Paths.DBPath,
		BackupsDir: cfg.Paths.BackupsDir,
		AssetsDir:  cfg.Paths.ArtifactsDir,
		Logger:     logger,
	})
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current and latest schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		status, err := runner.Status(cmd.Context())
		if err != nil {
			return err
		}
		if printJSON(status) {
			return nil
		}

		fmt.Printf("Current version: %d\n", status.Current)
		fmt.Printf("Latest version:  %d\n", status.Latest)
		if status.Ahead {
			fmt.Println("Warning: the store is newer than this release")
		}
		for _, s := range status.Pending {
			fmt.Printf("  pending %03d %s\n", s.Version, s.Name)
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		version, err := runner.ApplyLatest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", version)
		return nil
	},
}

var migratePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old migration backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep <= 0 {
			keep = cfg.Maintenance.BackupRetention
		}
		removed, err := migrate.PruneBackups(cfg.Paths.BackupsDir, keep)
		if err != nil {
			return err
		}
		if printJSON(removed) {
			return nil
		}
		fmt.Printf("Removed %d backup(s)\n", len(removed))
		return nil
	},
}

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run scheduled housekeeping until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if once, _ := cmd.Flags().GetBool("once"); once {
			return jobs.PruneBackups(cfg.Paths.BackupsDir, cfg.Maintenance.BackupRetention, logger)
		}

		ctx := cmd.Context()
		_, err := jobs.ScheduleBackupRetention(ctx, cfg.Maintenance.Schedule,
			cfg.Paths.BackupsDir, cfg.Maintenance.BackupRetention, logger)
		if err != nil {
			return err
		}
		logger.Info("maintenance scheduled", "schedule", cfg.Maintenance.Schedule)
		<-ctx.Done()
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd, migrateUpCmd, migratePruneCmd)
	migratePruneCmd.Flags().Int("keep", 0, "Backups to keep (default from config)")
	maintainCmd.Flags().Bool("once", false, "Prune backups once and exit")
}
