package dispatch

import (
	"context"
	"log"
)

// RunTrigger consumes dispatch IDs from the assignment-update feed (the
// redis channel published on every driver mutation) and reconciles each.
// Duplicate or already-converged updates fall through the no-op path.
func (r *Reconciler) RunTrigger(ctx context.Context, updates <-chan uint) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-updates:
			if !ok {
				return
			}
			if _, err := r.Reconcile(ctx, id); err != nil {
				log.Printf("Trigger: reconcile dispatch %d: %v", id, err)
			}
		}
	}
}
