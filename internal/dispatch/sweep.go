package dispatch

import (
	"context"
	"log"
	"time"
)

// RunSweep reconciles every active dispatch on a fixed cadence and cancels
// assignment records whose dispatch is gone. Because Reconcile is a no-op
// when nothing changed, the sweep can safely overlap the trigger and direct
// RPC callers.
func (r *Reconciler) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single reconciliation pass over all active dispatches
func (r *Reconciler) SweepOnce(ctx context.Context) {
	ids, err := r.store.ListActiveDispatchIDs(ctx)
	if err != nil {
		log.Printf("Sweep: failed to list active dispatches: %v", err)
		return
	}

	for _, id := range ids {
		if _, err := r.Reconcile(ctx, id); err != nil {
			log.Printf("Sweep: reconcile dispatch %d: %v", id, err)
		}
	}

	if n, err := r.store.CancelOrphanAssignments(ctx); err != nil {
		log.Printf("Sweep: orphan assignment cleanup: %v", err)
	} else if n > 0 {
		log.Printf("Sweep: cancelled %d orphan assignments", n)
	}
}
