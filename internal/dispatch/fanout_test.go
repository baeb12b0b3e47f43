package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truckflow/dispatch-backend/internal/models"
)

func testDispatch() *models.Dispatch {
	d := &models.Dispatch{
		DispatchCode: "DSP-20250901-42",
		CustomerID:   7,
		Status:       models.DispatchStatusAssigned,
	}
	d.ID = 1
	return d
}

func testDrivers() []models.DispatchDriver {
	dd1 := models.DispatchDriver{
		DispatchID: 1,
		DriverID:   10,
		Status:     models.DriverStatusAssigned,
		Driver:     &models.User{Username: "kwame"},
	}
	dd2 := models.DispatchDriver{
		DispatchID: 1,
		DriverID:   11,
		Status:     models.DriverStatusAssigned,
		Driver:     &models.User{Username: "ama"},
	}
	return []models.DispatchDriver{dd1, dd2}
}

func TestAggregateFanoutAssignedIsSilent(t *testing.T) {
	notes := AggregateFanout(testDispatch(), testDrivers(), models.DispatchStatusAssigned)
	assert.Empty(t, notes)
}

func TestAggregateFanoutInProgress(t *testing.T) {
	d := testDispatch()
	notes := AggregateFanout(d, testDrivers(), models.DispatchStatusInProgress)

	// customer + two drivers + admin feed
	require.Len(t, notes, 4)

	customer := notes[0]
	assert.Equal(t, models.AudienceCustomer, customer.Audience)
	require.NotNil(t, customer.RecipientID)
	assert.Equal(t, d.CustomerID, *customer.RecipientID)
	assert.Equal(t, models.NotificationDispatchInProgress, customer.Type)
	assert.Equal(t, models.PriorityHigh, customer.Priority)

	admin := notes[len(notes)-1]
	assert.Equal(t, models.AudienceAdmin, admin.Audience)
	assert.Nil(t, admin.RecipientID)

	for _, n := range notes {
		assert.Equal(t, d.ID, n.DispatchID)
	}
}

func TestAggregateFanoutCompleted(t *testing.T) {
	notes := AggregateFanout(testDispatch(), testDrivers(), models.DispatchStatusCompleted)

	require.Len(t, notes, 4)
	for _, n := range notes {
		assert.Equal(t, models.NotificationDispatchCompleted, n.Type)
	}
}

func TestDriverTransitionFanoutSelfStart(t *testing.T) {
	d := testDispatch()
	drivers := testDrivers()
	dd := drivers[0]
	dd.Status = models.DriverStatusInProgress

	notes := DriverTransitionFanout(d, drivers, dd, Actor{DriverID: dd.DriverID})

	// customer + transitioning driver + one co-driver + admin feed
	require.Len(t, notes, 4)
	for _, n := range notes {
		assert.Equal(t, models.NotificationTripStarted, n.Type)
		assert.NotContains(t, n.Body, "admin")
	}
	assert.Contains(t, notes[0].Body, "kwame")

	coDriver := notes[2]
	require.NotNil(t, coDriver.RecipientID)
	assert.Equal(t, uint(11), *coDriver.RecipientID)
}

func TestDriverTransitionFanoutAdminStart(t *testing.T) {
	d := testDispatch()
	drivers := testDrivers()
	dd := drivers[0]
	dd.Status = models.DriverStatusInProgress

	notes := DriverTransitionFanout(d, drivers, dd, Actor{AdminID: 99, AdminName: "dispatcher-joe"})

	require.Len(t, notes, 4)
	assert.Equal(t, models.NotificationTripStartedAdmin, notes[0].Type)
	assert.Equal(t, models.PriorityHigh, notes[0].Priority)
	assert.Contains(t, notes[0].Body, "dispatcher-joe")
	assert.Contains(t, notes[1].Body, "dispatcher-joe")
}

func TestDriverTransitionFanoutComplete(t *testing.T) {
	d := testDispatch()
	drivers := testDrivers()
	dd := drivers[1]
	dd.Status = models.DriverStatusCompleted

	notes := DriverTransitionFanout(d, drivers, dd, Actor{DriverID: dd.DriverID})

	require.Len(t, notes, 4)
	for _, n := range notes {
		assert.Equal(t, models.NotificationTripCompleted, n.Type)
	}
	assert.Contains(t, notes[0].Body, "ama")
	assert.Contains(t, notes[0].Body, "completed")
}

func TestDriverTransitionFanoutAssignedIsSilent(t *testing.T) {
	drivers := testDrivers()
	notes := DriverTransitionFanout(testDispatch(), drivers, drivers[0], Actor{DriverID: 10})
	assert.Nil(t, notes)
}

func TestDriverTransitionFanoutUnknownDriverName(t *testing.T) {
	d := testDispatch()
	dd := models.DispatchDriver{DispatchID: 1, DriverID: 42, Status: models.DriverStatusInProgress}

	notes := DriverTransitionFanout(d, []models.DispatchDriver{dd}, dd, Actor{DriverID: 42})

	require.NotEmpty(t, notes)
	assert.Contains(t, notes[0].Body, "driver #42")
}

func TestForceStartFanout(t *testing.T) {
	d := testDispatch()
	drivers := testDrivers()

	notes := ForceStartFanout(d, drivers, "dispatcher-joe")

	require.Len(t, notes, 3)
	for _, n := range notes {
		assert.Equal(t, models.NotificationTripStartedAdmin, n.Type)
		assert.Equal(t, models.PriorityHigh, n.Priority)
		assert.Contains(t, n.Body, "dispatcher-joe")
	}
	assert.Equal(t, models.AudienceCustomer, notes[0].Audience)
	assert.Equal(t, models.AudienceDriver, notes[1].Audience)
}
