package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/truckflow/dispatch-backend/internal/models"
)

func TestComputeAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		statuses []string
		want     string
	}{
		{
			name:     "no drivers keeps pending",
			current:  models.DispatchStatusPending,
			statuses: nil,
			want:     models.DispatchStatusPending,
		},
		{
			name:     "no drivers keeps accepted",
			current:  models.DispatchStatusAccepted,
			statuses: []string{},
			want:     models.DispatchStatusAccepted,
		},
		{
			name:     "single assigned driver",
			current:  models.DispatchStatusAccepted,
			statuses: []string{models.DriverStatusAssigned},
			want:     models.DispatchStatusAssigned,
		},
		{
			name:     "all assigned",
			current:  models.DispatchStatusAssigned,
			statuses: []string{models.DriverStatusAssigned, models.DriverStatusAssigned},
			want:     models.DispatchStatusAssigned,
		},
		{
			name:     "one driver starts",
			current:  models.DispatchStatusAssigned,
			statuses: []string{models.DriverStatusInProgress, models.DriverStatusAssigned},
			want:     models.DispatchStatusInProgress,
		},
		{
			name:     "in progress beats completed",
			current:  models.DispatchStatusInProgress,
			statuses: []string{models.DriverStatusCompleted, models.DriverStatusInProgress},
			want:     models.DispatchStatusInProgress,
		},
		{
			name:     "all completed",
			current:  models.DispatchStatusInProgress,
			statuses: []string{models.DriverStatusCompleted, models.DriverStatusCompleted},
			want:     models.DispatchStatusCompleted,
		},
		{
			name:     "single completed driver",
			current:  models.DispatchStatusInProgress,
			statuses: []string{models.DriverStatusCompleted},
			want:     models.DispatchStatusCompleted,
		},
		{
			name:     "assigned and completed mix falls back to assigned",
			current:  models.DispatchStatusInProgress,
			statuses: []string{models.DriverStatusAssigned, models.DriverStatusCompleted},
			want:     models.DispatchStatusAssigned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAggregateStatus(tt.current, tt.statuses)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeAggregateStatusIsDeterministic(t *testing.T) {
	statuses := []string{
		models.DriverStatusCompleted,
		models.DriverStatusInProgress,
		models.DriverStatusAssigned,
	}

	first := ComputeAggregateStatus(models.DispatchStatusAssigned, statuses)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeAggregateStatus(models.DispatchStatusAssigned, statuses))
	}
}
