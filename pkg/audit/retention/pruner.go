// Package retention enforces retention policy on the audit trail:
// age-based pruning of decision logs and outcomes, optionally capped
// by a maximum record count, on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meridian-hq/vega/pkg/audit"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain decision logs.
	// 0 means keep them forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxRecords is the maximum number of decision logs to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Pruner enforces retention policy on the audit trail.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)
	return pruner
}

// Prune runs one pruning cycle: first age-based, then count-based.
// Both phases can run together. Returns the total number of decision
// logs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.DeleteBefore(ctx, cutoff)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		if deleted > 0 {
			p.logger.Info("pruned decision logs by age",
				"deleted_count", deleted,
				"retention_days", p.config.RetentionDays,
			)
		}
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.storage.DeleteOldestDecisions(ctx, p.config.MaxRecords)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		if deleted > 0 {
			p.logger.Info("pruned decision logs by count",
				"deleted_count", deleted,
				"max_records", p.config.MaxRecords,
			)
		}
	}

	if totalDeleted == 0 {
		p.logger.Debug("no decision logs pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return totalDeleted, nil
}

// Start begins scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled pruning time, or nil if the
// scheduler is not running.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
