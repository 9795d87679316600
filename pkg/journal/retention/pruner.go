package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/iptvrelay/pkg/journal"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the age after which records are deleted.
	// Zero or negative keeps records forever.
	RetentionDays int

	// PruneSchedule is a standard cron expression, e.g. "0 3 * * *".
	PruneSchedule string

	// MaxRecords keeps at most this many records. Zero means unlimited.
	MaxRecords int64
}

// Pruner enforces retention on a journal store.
type Pruner struct {
	storage journal.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a pruner for storage.
func NewPruner(storage journal.Storage, config *Config) *Pruner {
	if config == nil {
		config = &Config{}
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "journal.retention"),
		now:     time.Now,
	}
}

// Prune deletes records older than the retention period, then trims the
// journal to MaxRecords. It returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().Add(-time.Duration(p.config.RetentionDays) * 24 * time.Hour)
		deleted, err := p.storage.Delete(ctx, cutoff)
		if err != nil {
			return total, journal.NewRetentionError(p.config.RetentionDays, err)
		}
		total += deleted
		p.logger.Debug("pruned records by age", "deleted_count", deleted, "cutoff", cutoff)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.storage.Prune(ctx, p.config.MaxRecords)
		if err != nil {
			return total, journal.NewRetentionError(p.config.RetentionDays, err)
		}
		total += deleted
		p.logger.Debug("pruned records by count", "deleted_count", deleted, "max_records", p.config.MaxRecords)
	}

	if total > 0 {
		p.logger.Info("journal pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}
