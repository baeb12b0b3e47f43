package dispatch

import "github.com/truckflow/dispatch-backend/internal/models"

// ComputeAggregateStatus derives the dispatch status from its per-driver
// statuses. With no assignments the current status is returned unchanged so
// pending/accepted/rejected dispatches are never forced to a derived value.
// Precedence: all completed, then any in progress, then assigned. A mix of
// assigned and completed drivers with none in progress falls back to
// assigned.
func ComputeAggregateStatus(current string, driverStatuses []string) string {
	if len(driverStatuses) == 0 {
		return current
	}

	allCompleted := true
	anyInProgress := false
	for _, s := range driverStatuses {
		if s != models.DriverStatusCompleted {
			allCompleted = false
		}
		if s == models.DriverStatusInProgress {
			anyInProgress = true
		}
	}

	if allCompleted {
		return models.DispatchStatusCompleted
	}
	if anyInProgress {
		return models.DispatchStatusInProgress
	}
	return models.DispatchStatusAssigned
}
