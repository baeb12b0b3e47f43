package dispatch

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truckflow/dispatch-backend/internal/models"
)

// fakeStore is an in-memory Store that counts writes, so tests can assert
// that redundant reconcile passes touch nothing.
type fakeStore struct {
	dispatch    models.Dispatch
	drivers     map[uint]models.DispatchDriver
	assignments map[uint]models.Assignment
	events      map[string]time.Time

	statusWrites    int
	driverSaves     int
	assignmentSyncs int

	failAssignmentID uint
}

func newFakeStore(status string, driverStatuses ...string) *fakeStore {
	s := &fakeStore{
		drivers:     make(map[uint]models.DispatchDriver),
		assignments: make(map[uint]models.Assignment),
		events:      make(map[string]time.Time),
	}
	s.dispatch = models.Dispatch{
		DispatchCode: "DSP-20250901-1",
		CustomerID:   7,
		Status:       status,
	}
	s.dispatch.ID = 1

	for i, ds := range driverStatuses {
		driverID := uint(10 + i)
		dd := models.DispatchDriver{DispatchID: 1, DriverID: driverID, TruckID: 1, Status: ds}
		dd.ID = driverID
		s.drivers[driverID] = dd

		a := models.Assignment{DispatchID: 1, DriverID: driverID, TruckID: 1, Status: ds}
		a.ID = driverID
		s.assignments[driverID] = a
	}
	return s
}

func (s *fakeStore) GetDispatch(_ context.Context, dispatchID uint) (*models.Dispatch, error) {
	if dispatchID != s.dispatch.ID {
		return nil, ErrDispatchNotFound
	}
	d := s.dispatch
	return &d, nil
}

func (s *fakeStore) GetDispatchDrivers(_ context.Context, _ uint) ([]models.DispatchDriver, error) {
	ids := make([]uint, 0, len(s.drivers))
	for id := range s.drivers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.DispatchDriver, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.drivers[id])
	}
	return out, nil
}

func (s *fakeStore) GetDispatchDriver(_ context.Context, _, driverID uint) (*models.DispatchDriver, error) {
	dd, ok := s.drivers[driverID]
	if !ok {
		return nil, ErrDriverNotAssigned
	}
	return &dd, nil
}

func (s *fakeStore) SaveDispatchDriver(_ context.Context, dd *models.DispatchDriver) error {
	s.driverSaves++
	s.drivers[dd.DriverID] = *dd
	return nil
}

func (s *fakeStore) UpdateDispatchStatus(_ context.Context, _ uint, status string, at time.Time) error {
	s.statusWrites++
	s.dispatch.Status = status
	s.dispatch.CurrentStatus = status
	s.dispatch.CurrentStatusAt = &at
	return nil
}

func (s *fakeStore) RecordStatusReached(_ context.Context, _ uint, status string, at time.Time) error {
	if _, ok := s.events[status]; !ok {
		s.events[status] = at
	}
	return nil
}

func (s *fakeStore) ListAssignments(_ context.Context, _ uint) ([]models.Assignment, error) {
	ids := make([]uint, 0, len(s.assignments))
	for id := range s.assignments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.assignments[id])
	}
	return out, nil
}

func (s *fakeStore) UpdateAssignmentStatus(_ context.Context, assignmentID uint, status string) error {
	if assignmentID == s.failAssignmentID {
		return errors.New("assignment update failed")
	}
	s.assignmentSyncs++
	a := s.assignments[assignmentID]
	a.Status = status
	s.assignments[assignmentID] = a
	return nil
}

func (s *fakeStore) ListActiveDispatchIDs(_ context.Context) ([]uint, error) {
	switch s.dispatch.Status {
	case models.DispatchStatusAssigned, models.DispatchStatusInProgress:
		return []uint{s.dispatch.ID}, nil
	}
	return nil, nil
}

func (s *fakeStore) CancelOrphanAssignments(_ context.Context) (int64, error) {
	return 0, nil
}

// recordingNotifier captures every notification; fail makes every send error
type recordingNotifier struct {
	sent []models.Notification
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, note models.Notification) error {
	n.sent = append(n.sent, note)
	if n.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func TestReconcileNoOpWhenConverged(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusAssigned, models.DriverStatusAssigned)
	notifier := &recordingNotifier{}
	rec := NewReconciler(store, notifier, nil)

	status, err := rec.Reconcile(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusAssigned, status)
	assert.Zero(t, store.statusWrites)
	assert.Zero(t, store.assignmentSyncs)
	assert.Empty(t, notifier.sent)
}

func TestReconcileConvergesToInProgress(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusInProgress, models.DriverStatusAssigned)
	notifier := &recordingNotifier{}
	rec := NewReconciler(store, notifier, nil)

	status, err := rec.Reconcile(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusInProgress, status)
	assert.Equal(t, 1, store.statusWrites)
	assert.Equal(t, models.DispatchStatusInProgress, store.dispatch.CurrentStatus)

	// both assignment records mirror the aggregate
	for _, a := range store.assignments {
		assert.Equal(t, models.DispatchStatusInProgress, a.Status)
	}

	_, ok := store.events[models.DispatchStatusInProgress]
	assert.True(t, ok)

	// customer + two drivers + admin feed
	assert.Len(t, notifier.sent, 4)
}

func TestReconcileSecondPassIsNoOp(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusCompleted, models.DriverStatusCompleted)
	notifier := &recordingNotifier{}
	rec := NewReconciler(store, notifier, nil)

	status, err := rec.Reconcile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusCompleted, status)

	writesAfterFirst := store.statusWrites
	sentAfterFirst := len(notifier.sent)
	firstReached := store.events[models.DispatchStatusCompleted]

	for i := 0; i < 3; i++ {
		status, err = rec.Reconcile(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.DispatchStatusCompleted, status)
	}

	assert.Equal(t, writesAfterFirst, store.statusWrites)
	assert.Equal(t, sentAfterFirst, len(notifier.sent))
	assert.Equal(t, firstReached, store.events[models.DispatchStatusCompleted])
}

func TestReconcileNotifierFailuresDoNotFailReconcile(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusCompleted)
	notifier := &recordingNotifier{fail: true}
	rec := NewReconciler(store, notifier, nil)

	status, err := rec.Reconcile(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusCompleted, status)
	assert.Equal(t, models.DispatchStatusCompleted, store.dispatch.Status)

	// every recipient was still attempted despite each send failing
	assert.Len(t, notifier.sent, 3)
}

func TestReconcileAssignmentSyncFailureIsIsolated(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusInProgress, models.DriverStatusInProgress)
	for id, a := range store.assignments {
		a.Status = models.DriverStatusAssigned
		store.assignments[id] = a
	}
	store.failAssignmentID = 10
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	_, err := rec.Reconcile(context.Background(), 1)

	// the failing record must not abort the pass or fail the reconcile
	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusInProgress, store.assignments[11].Status)
	assert.Equal(t, models.DriverStatusAssigned, store.assignments[10].Status)
}

func TestReconcileUnknownDispatch(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned, models.DriverStatusAssigned)
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	_, err := rec.Reconcile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrDispatchNotFound)
}

func TestSetDriverStatusStampsTimestampOnce(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusAssigned, models.DriverStatusAssigned)
	rec := NewReconciler(store, &recordingNotifier{}, nil)
	ctx := context.Background()

	dd, err := rec.SetDriverStatus(ctx, 1, 10, models.DriverStatusInProgress, Actor{DriverID: 10})
	require.NoError(t, err)
	require.NotNil(t, dd.StartedAt)
	firstStart := *dd.StartedAt

	time.Sleep(5 * time.Millisecond)

	dd, err = rec.SetDriverStatus(ctx, 1, 10, models.DriverStatusInProgress, Actor{DriverID: 10})
	require.NoError(t, err)
	require.NotNil(t, dd.StartedAt)
	assert.Equal(t, firstStart, *dd.StartedAt)

	dd, err = rec.SetDriverStatus(ctx, 1, 10, models.DriverStatusCompleted, Actor{DriverID: 10})
	require.NoError(t, err)
	require.NotNil(t, dd.CompletedAt)
	assert.Equal(t, firstStart, *dd.StartedAt)
}

func TestSetDriverStatusReconcilesAggregate(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned, models.DriverStatusAssigned)
	notifier := &recordingNotifier{}
	rec := NewReconciler(store, notifier, nil)

	_, err := rec.SetDriverStatus(context.Background(), 1, 10, models.DriverStatusInProgress, Actor{DriverID: 10})

	require.NoError(t, err)
	assert.Equal(t, models.DispatchStatusInProgress, store.dispatch.Status)

	// aggregate fan-out plus the targeted driver-transition fan-out
	assert.NotEmpty(t, notifier.sent)
}

func TestSetDriverStatusRejectsInvalidStatus(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned, models.DriverStatusAssigned)
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	_, err := rec.SetDriverStatus(context.Background(), 1, 10, "teleported", Actor{DriverID: 10})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = rec.SetDriverStatus(context.Background(), 1, 99, models.DriverStatusInProgress, Actor{DriverID: 99})
	assert.ErrorIs(t, err, ErrDriverNotAssigned)
}

func TestForceStartMovesEveryDriver(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusAssigned, models.DriverStatusInProgress, models.DriverStatusCompleted)

	// pre-existing start timestamp must survive the override
	existing := store.drivers[11]
	startedEarlier := time.Now().Add(-time.Hour)
	existing.StartedAt = &startedEarlier
	store.drivers[11] = existing

	notifier := &recordingNotifier{}
	rec := NewReconciler(store, notifier, nil)

	started, err := rec.ForceStart(context.Background(), 1, 99, "dispatcher-joe")

	require.NoError(t, err)
	assert.Equal(t, 3, started)
	assert.Equal(t, models.DispatchStatusInProgress, store.dispatch.Status)

	for _, dd := range store.drivers {
		assert.Equal(t, models.DriverStatusInProgress, dd.Status)
		assert.True(t, dd.AdminOverride)
		require.NotNil(t, dd.StartedAt)
	}
	assert.Equal(t, startedEarlier, *store.drivers[11].StartedAt)

	// customer + one per driver
	assert.Len(t, notifier.sent, 4)
}

func TestForceStartWithoutDrivers(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAccepted)
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	_, err := rec.ForceStart(context.Background(), 1, 99, "dispatcher-joe")
	assert.ErrorIs(t, err, ErrNoDrivers)
}

func TestSweepOnceConvergesActiveDispatch(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusCompleted, models.DriverStatusCompleted)
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	rec.SweepOnce(context.Background())

	assert.Equal(t, models.DispatchStatusCompleted, store.dispatch.Status)
}

func TestRunTriggerReconcilesPublishedIDs(t *testing.T) {
	store := newFakeStore(models.DispatchStatusAssigned,
		models.DriverStatusInProgress)
	rec := NewReconciler(store, &recordingNotifier{}, nil)

	updates := make(chan uint, 1)
	updates <- 1
	close(updates)

	rec.RunTrigger(context.Background(), updates)

	assert.Equal(t, models.DispatchStatusInProgress, store.dispatch.Status)
}
