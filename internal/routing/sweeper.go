package routing

import (
	"context"
	"time"

	"github.com/sourcemesh/router/internal/events"
)

// SweepResult reports both halves of a sweep independently: a failure
// expiring offers never hides the assignment count, and vice versa.
type SweepResult struct {
	AssignmentsExpired int    `json:"assignments_expired"`
	OffersExpired      int    `json:"offers_expired"`
	AssignmentsError   string `json:"assignments_error,omitempty"`
	OffersError        string `json:"offers_error,omitempty"`
}

// Start launches the periodic sweep loop.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.sweepLoop(ctx)
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) sweepLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep retires every assignment and offer whose window lapsed. Both
// sub-sweeps are idempotent single conditional updates, so running
// alongside concurrent claims is safe: a claim that lands first keeps the
// row claimed.
func (e *Engine) Sweep(ctx context.Context) SweepResult {
	var result SweepResult
	now := time.Now()

	n, err := e.store.ExpireDueAssignments(ctx, now)
	if err != nil {
		e.logger.Error("failed to expire assignments", "error", err)
		result.AssignmentsError = err.Error()
	} else {
		result.AssignmentsExpired = n
	}

	n, err = e.store.ExpireDueOffers(ctx, now)
	if err != nil {
		e.logger.Error("failed to expire offers", "error", err)
		result.OffersError = err.Error()
	} else {
		result.OffersExpired = n
	}

	if result.AssignmentsExpired > 0 || result.OffersExpired > 0 {
		e.logger.Info("sweep completed",
			"assignments_expired", result.AssignmentsExpired,
			"offers_expired", result.OffersExpired,
		)
	}

	if e.events != nil {
		_ = e.events.Publish(events.SubjectSweepCompleted, events.SweepCompletedEvent{
			AssignmentsExpired: result.AssignmentsExpired,
			OffersExpired:      result.OffersExpired,
			SweptAt:            now,
		})
	}

	return result
}
