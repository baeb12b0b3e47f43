package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusStampsFirstTransitionOnly(t *testing.T) {
	dd := DispatchDriver{DispatchID: 1, DriverID: 10, Status: DriverStatusAssigned}

	first := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	dd.ApplyStatus(DriverStatusInProgress, first)

	assert.Equal(t, DriverStatusInProgress, dd.Status)
	require.NotNil(t, dd.StartedAt)
	assert.Equal(t, first, *dd.StartedAt)

	later := first.Add(time.Hour)
	dd.ApplyStatus(DriverStatusInProgress, later)
	assert.Equal(t, first, *dd.StartedAt)

	dd.ApplyStatus(DriverStatusCompleted, later)
	assert.Equal(t, DriverStatusCompleted, dd.Status)
	require.NotNil(t, dd.CompletedAt)
	assert.Equal(t, later, *dd.CompletedAt)
	assert.Equal(t, first, *dd.StartedAt)
}

func TestApplyStatusAssigned(t *testing.T) {
	dd := DispatchDriver{DispatchID: 1, DriverID: 10}

	at := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	dd.ApplyStatus(DriverStatusAssigned, at)

	assert.Equal(t, DriverStatusAssigned, dd.Status)
	require.NotNil(t, dd.AssignedAt)
	assert.Equal(t, at, *dd.AssignedAt)
	assert.Nil(t, dd.StartedAt)
	assert.Nil(t, dd.CompletedAt)
}

func TestHasAssignments(t *testing.T) {
	d := Dispatch{}
	assert.False(t, d.HasAssignments())

	d.Drivers = []DispatchDriver{{DispatchID: 1, DriverID: 10}}
	assert.True(t, d.HasAssignments())
}
