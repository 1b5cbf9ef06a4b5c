// Package startup handles boot-time recovery: abandoning breaks orphaned
// by a crash and reclaiming their temp directories.
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/storage"
)

// TempMaxAge is how old a build temp directory must be before the startup
// sweep removes it. Fresh directories may belong to a concurrently starting
// build.
const TempMaxAge = time.Hour

// Report summarizes what recovery did.
type Report struct {
	// BreaksAbandoned counts PREPARING breaks marked FAILED.
	BreaksAbandoned int64

	// TempDirsRemoved counts orphaned build directories reclaimed.
	TempDirsRemoved int
}

// Recover settles state left behind by an unclean shutdown. A break in
// PREPARING at boot has no pipeline working on it anymore; it is marked
// FAILED so the queue and the stats stay truthful.
func Recover(ctx context.Context, breaks repository.BreakRepository, events repository.EventRepository, sandbox *storage.Sandbox, logger *slog.Logger) (*Report, error) {
	report := &Report{}

	abandoned, err := breaks.FailStalePreparing(ctx, models.FailReasonStale)
	if err != nil {
		return nil, fmt.Errorf("abandoning stale breaks: %w", err)
	}
	report.BreaksAbandoned = abandoned

	if abandoned > 0 {
		logger.WarnContext(ctx, "abandoned breaks left PREPARING by previous run",
			slog.Int64("count", abandoned))
		if err := events.Log(ctx, models.EventBreakFailed, "stale PREPARING breaks abandoned at startup", map[string]any{
			"count":  abandoned,
			"reason": models.FailReasonStale,
		}); err != nil {
			logger.WarnContext(ctx, "recording recovery event failed", slog.Any("error", err))
		}
	}

	if sandbox != nil {
		removed, err := sandbox.SweepTemp(TempMaxAge)
		if err != nil {
			// Media on disk is advisory state; failing the boot over a
			// sweep would be worse than the leak.
			logger.WarnContext(ctx, "temp sweep failed", slog.Any("error", err))
		}
		report.TempDirsRemoved = removed
	}

	logger.InfoContext(ctx, "startup recovery finished",
		slog.Int64("breaks_abandoned", report.BreaksAbandoned),
		slog.Int("temp_dirs_removed", report.TempDirsRemoved))

	return report, nil
}
