package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/truckflow/dispatch-backend/internal/models"
)

var (
	// ErrDispatchNotFound is returned when the dispatch does not exist
	ErrDispatchNotFound = errors.New("dispatch not found")
	// ErrDriverNotAssigned is returned when the driver has no sub-record on the dispatch
	ErrDriverNotAssigned = errors.New("driver is not assigned to this dispatch")
	// ErrInvalidStatus is returned for a status outside the driver lifecycle
	ErrInvalidStatus = errors.New("invalid driver status")
	// ErrNoDrivers is returned when an operation needs at least one assigned driver
	ErrNoDrivers = errors.New("dispatch has no assigned drivers")
)

// Notifier delivers one notification to one recipient. Implementations
// persist the record and push it out; the reconciler isolates failures per
// recipient and never lets delivery errors fail a status operation.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Events receives aggregate status changes, e.g. for a redis cache/feed.
// Optional; a nil Events is skipped.
type Events interface {
	PublishDispatchStatus(ctx context.Context, dispatchID uint, status string) error
}

// Reconciler owns the dispatch status rules. Every caller that mutates or
// observes driver state converges on Reconcile: the driver RPC handlers,
// the assignment-update trigger, the periodic sweep, and the manual admin
// sync all run the same code path, which is safe because Reconcile is a
// no-op when nothing changed.
type Reconciler struct {
	store    Store
	notifier Notifier
	events   Events
}

// NewReconciler creates a reconciler. events may be nil.
func NewReconciler(store Store, notifier Notifier, events Events) *Reconciler {
	return &Reconciler{store: store, notifier: notifier, events: events}
}

// Reconcile recomputes the aggregate status of a dispatch from its driver
// sub-records and, only when it changed, writes the status, mirrors it onto
// the assignment records, and fans out notifications. Returns the (possibly
// unchanged) aggregate status.
func (r *Reconciler) Reconcile(ctx context.Context, dispatchID uint) (string, error) {
	d, err := r.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return "", err
	}

	drivers, err := r.store.GetDispatchDrivers(ctx, d.ID)
	if err != nil {
		return "", err
	}

	statuses := make([]string, 0, len(drivers))
	for _, dd := range drivers {
		statuses = append(statuses, dd.Status)
	}

	newStatus := ComputeAggregateStatus(d.Status, statuses)
	if newStatus == d.Status {
		// No writes and no notifications on a no-op pass; redundant
		// invocations from the trigger, the sweep, and manual syncs
		// all land here.
		return newStatus, nil
	}

	now := time.Now()
	if err := r.store.UpdateDispatchStatus(ctx, d.ID, newStatus, now); err != nil {
		return "", err
	}
	if err := r.store.RecordStatusReached(ctx, d.ID, newStatus, now); err != nil {
		log.Printf("Failed to record status event for dispatch %d: %v", d.ID, err)
	}

	r.syncAssignments(ctx, d.ID, newStatus)

	for _, n := range AggregateFanout(d, drivers, newStatus) {
		if err := r.notifier.Send(ctx, n); err != nil {
			log.Printf("Failed to deliver %s notification for dispatch %d: %v", n.Audience, d.ID, err)
		}
	}

	if r.events != nil {
		if err := r.events.PublishDispatchStatus(ctx, d.ID, newStatus); err != nil {
			log.Printf("Failed to publish status change for dispatch %d: %v", d.ID, err)
		}
	}

	return newStatus, nil
}

// syncAssignments forces every assignment record of the dispatch to the
// aggregate status. Best-effort: one failing record must not abort the rest,
// the next sweep converges any record left behind.
func (r *Reconciler) syncAssignments(ctx context.Context, dispatchID uint, status string) {
	assignments, err := r.store.ListAssignments(ctx, dispatchID)
	if err != nil {
		log.Printf("Failed to list assignments for dispatch %d: %v", dispatchID, err)
		return
	}

	for _, a := range assignments {
		if a.Status == status {
			continue
		}
		if err := r.store.UpdateAssignmentStatus(ctx, a.ID, status); err != nil {
			log.Printf("Failed to sync assignment %d to %s: %v", a.ID, status, err)
		}
	}
}

// SetDriverStatus transitions one driver's sub-record, reconciles the
// aggregate, and sends the targeted per-driver notifications. Timestamps are
// stamped only on the first transition into a status, so repeated calls with
// the same terminal status do not reset them.
func (r *Reconciler) SetDriverStatus(ctx context.Context, dispatchID, driverID uint, newStatus string, actor Actor) (*models.DispatchDriver, error) {
	switch newStatus {
	case models.DriverStatusAssigned, models.DriverStatusInProgress, models.DriverStatusCompleted:
	default:
		return nil, ErrInvalidStatus
	}

	d, err := r.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return nil, err
	}

	dd, err := r.store.GetDispatchDriver(ctx, d.ID, driverID)
	if err != nil {
		return nil, err
	}

	dd.ApplyStatus(newStatus, time.Now())
	if err := r.store.SaveDispatchDriver(ctx, dd); err != nil {
		return nil, err
	}

	if _, err := r.Reconcile(ctx, d.ID); err != nil {
		log.Printf("Reconcile after driver %d transition on dispatch %d failed: %v", driverID, d.ID, err)
	}

	drivers, err := r.store.GetDispatchDrivers(ctx, d.ID)
	if err != nil {
		log.Printf("Failed to list drivers for dispatch %d fan-out: %v", d.ID, err)
	}
	for _, n := range DriverTransitionFanout(d, drivers, *dd, actor) {
		if err := r.notifier.Send(ctx, n); err != nil {
			log.Printf("Failed to deliver %s notification for dispatch %d: %v", n.Audience, d.ID, err)
		}
	}

	return dd, nil
}

// ForceStart is the admin bulk override: every driver sub-record is moved to
// in progress regardless of its current state, started_at is stamped where
// missing, and the dispatch status is written directly (the rule would yield
// the same result with every driver in progress). Returns how many driver
// records were started.
func (r *Reconciler) ForceStart(ctx context.Context, dispatchID, adminID uint, adminName string) (int, error) {
	d, err := r.store.GetDispatch(ctx, dispatchID)
	if err != nil {
		return 0, err
	}

	drivers, err := r.store.GetDispatchDrivers(ctx, d.ID)
	if err != nil {
		return 0, err
	}
	if len(drivers) == 0 {
		return 0, ErrNoDrivers
	}

	now := time.Now()
	started := 0
	for i := range drivers {
		dd := &drivers[i]
		dd.Status = models.DriverStatusInProgress
		if dd.StartedAt == nil {
			dd.StartedAt = &now
		}
		dd.AdminOverride = true
		if err := r.store.SaveDispatchDriver(ctx, dd); err != nil {
			log.Printf("Force start: failed to update driver %d on dispatch %d: %v", dd.DriverID, d.ID, err)
			continue
		}
		started++
	}

	if err := r.store.UpdateDispatchStatus(ctx, d.ID, models.DispatchStatusInProgress, now); err != nil {
		return started, err
	}
	if err := r.store.RecordStatusReached(ctx, d.ID, models.DispatchStatusInProgress, now); err != nil {
		log.Printf("Failed to record status event for dispatch %d: %v", d.ID, err)
	}

	r.syncAssignments(ctx, d.ID, models.DispatchStatusInProgress)

	for _, n := range ForceStartFanout(d, drivers, adminName) {
		if err := r.notifier.Send(ctx, n); err != nil {
			log.Printf("Failed to deliver %s notification for dispatch %d: %v", n.Audience, d.ID, err)
		}
	}

	if r.events != nil {
		if err := r.events.PublishDispatchStatus(ctx, d.ID, models.DispatchStatusInProgress); err != nil {
			log.Printf("Failed to publish status change for dispatch %d: %v", d.ID, err)
		}
	}

	return started, nil
}
