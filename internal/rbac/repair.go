package rbac

import (
	"context"

	"github.com/vouchd/vouchd/internal/logging"
	"github.com/vouchd/vouchd/internal/tasks"
)

// RepairTaskName is the registered name of the mirror repair sweep.
const RepairTaskName = "rbac-mirror-repair"

// mirrorRepairer is satisfied by both store backends.
type mirrorRepairer interface {
	RepairMirrors(ctx context.Context) (int, error)
}

// RepairTask wraps the mirror sweep as a background task. Assignment writes
// are best-effort dual writes; this sweep recreates any mirror record whose
// counterpart was written before a crash.
func RepairTask(store mirrorRepairer) tasks.Func {
	return func(ctx context.Context, logger logging.InternalLogger) error {
		repaired, err := store.RepairMirrors(ctx)
		if err != nil {
			return err
		}
		if repaired > 0 {
			logger.Warn("repaired %d half-written assignment record(s)", repaired)
		} else {
			logger.Info("all assignment mirrors consistent")
		}
		return nil
	}
}
