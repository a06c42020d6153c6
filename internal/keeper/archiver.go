package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// archiveLockKey guards an archive run across daemon replicas.
const archiveLockKey = "lock:keeper:archive"

// ArchiveConfig holds the archival loop settings.
type ArchiveConfig struct {
	RetentionDays int
	Interval      time.Duration
	LockTTL       time.Duration
}

// ArchiveRunner moves settled bets and old audit entries past the retention
// window from the database to blob cold storage.
type ArchiveRunner struct {
	archiver domain.Archiver
	locks    domain.LockManager
	cfg      ArchiveConfig
	logger   *slog.Logger
}

// NewArchiveRunner creates an ArchiveRunner. locks may be nil.
func NewArchiveRunner(archiver domain.Archiver, locks domain.LockManager, cfg ArchiveConfig, logger *slog.Logger) *ArchiveRunner {
	return &ArchiveRunner{
		archiver: archiver,
		locks:    locks,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes archive passes at the configured interval until the context
// is cancelled.
func (a *ArchiveRunner) Run(ctx context.Context) error {
	a.logger.Info("keeper: archive loop started",
		slog.Duration("interval", a.cfg.Interval),
		slog.Int("retention_days", a.cfg.RetentionDays),
	)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("keeper: archive loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.Error("keeper: archive run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce performs a single archive run: settled bets and audit entries
// older than the retention cutoff move to cold storage.
func (a *ArchiveRunner) RunOnce(ctx context.Context) error {
	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, archiveLockKey, a.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return nil
			}
			return err
		}
		defer unlock()
	}

	cutoff := time.Now().UTC().Add(-time.Duration(a.cfg.RetentionDays) * 24 * time.Hour)

	betsArchived, err := a.archiver.ArchiveBets(ctx, uint64(cutoff.Unix()))
	if err != nil {
		return fmt.Errorf("keeper: archive bets before %v: %w", cutoff, err)
	}

	auditArchived, err := a.archiver.ArchiveAudit(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("keeper: archive audit before %v: %w", cutoff, err)
	}

	a.logger.Info("keeper: archive run complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("bets_archived", betsArchived),
		slog.Int64("audit_archived", auditArchived),
	)
	return nil
}
