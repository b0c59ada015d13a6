package replay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// ErrJanitorRunning is returned when Run is called on a janitor that is
// already running.
var ErrJanitorRunning = errors.New("replay: janitor already running")

// Janitor periodically prunes buckets that can no longer be accepted.
type Janitor struct {
	pruner  Pruner
	every   time.Duration
	cutoff  func() uint64
	running *atomic.Bool
}

// NewJanitor builds a janitor that calls pruner.Prune(cutoff()) every tick.
func NewJanitor(pruner Pruner, every time.Duration, cutoff func() uint64) *Janitor {
	if every <= 0 {
		every = time.Minute
	}

	return &Janitor{
		pruner:  pruner,
		every:   every,
		cutoff:  cutoff,
		running: atomic.NewBool(false),
	}
}

// PruneOnce runs a single prune pass.
func (j *Janitor) PruneOnce(ctx context.Context) (int64, error) {
	if j.pruner == nil || j.cutoff == nil {
		return 0, nil
	}

	before := j.cutoff()
	if before == 0 {
		return 0, nil
	}

	return j.pruner.Prune(ctx, before)
}

// Run prunes on every tick until ctx is done. It fits goroutine.Manager.Go.
func (j *Janitor) Run(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		return ErrJanitorRunning
	}
	defer j.running.Store(false)

	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := j.PruneOnce(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				slog.WarnContext(ctx, "failed to prune used codes", "error", err)
				continue
			}
			if removed > 0 {
				slog.DebugContext(ctx, "pruned used codes", "removed", removed)
			}
		}
	}
}
