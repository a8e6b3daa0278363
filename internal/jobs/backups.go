// Package jobs holds scheduled housekeeping.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/logging"
	"github.com/shkienao-pixel/UNSW-Exam-Master/pkg/migrate"
)

// PruneBackups deletes all but the newest keep migration backups in dir
func PruneBackups(dir string, keep int, logger logging.Logger) error {
	removed, err := migrate.PruneBackups(dir, keep)
	if err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}
	if len(removed) > 0 {
		logging.OrNop(logger).Info("pruned migration backups", "dir", dir, "removed", len(removed), "kept", keep)
	}
	return nil
}

// ScheduleBackupRetention prunes backups on schedule (a cron spec such as
// "@daily") until ctx is done.
func ScheduleBackupRetention(ctx context.Context, schedule, dir string, keep int, logger logging.Logger) (*cron.Cron, error) {
	logger = logging.OrNop(logger).With("job", "backup_retention")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := PruneBackups(dir, keep, logger); err != nil {
			logger.Error("backup retention failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
