package models

import (
	"time"

	"gorm.io/gorm"
)

// DispatchStatus constants. The aggregate status is derived from the
// per-driver rows once any driver is assigned; pending/accepted/rejected
// are set directly by admin action before assignment.
const (
	DispatchStatusPending    = "pending"
	DispatchStatusAccepted   = "accepted"
	DispatchStatusAssigned   = "assigned"
	DispatchStatusInProgress = "in_progress"
	DispatchStatusCompleted  = "completed"
	DispatchStatusRejected   = "rejected"
)

// DriverStatus constants for the per-driver sub-records
const (
	DriverStatusAssigned   = "assigned"
	DriverStatusInProgress = "in_progress"
	DriverStatusCompleted  = "completed"
)

// Dispatch represents a dispatch request from a customer
type Dispatch struct {
	gorm.Model
	DispatchCode    string           `json:"dispatchCode" gorm:"uniqueIndex;not null"`
	CustomerID      uint             `json:"customerId" gorm:"not null"`
	PickupAddr      string           `json:"pickupAddress" gorm:"not null"`
	DestAddr        string           `json:"destAddress" gorm:"not null"`
	CargoDesc       string           `json:"cargoDescription"`
	WeightTons      float64          `json:"weightTons"`
	ScheduledDate   string           `json:"scheduledDate" gorm:"not null"` // yyyy-MM-dd
	Status          string           `json:"status" gorm:"not null;default:'pending'"`
	CurrentStatus   string           `json:"currentStatus"` // denormalized projection of Status
	CurrentStatusAt *time.Time       `json:"currentStatusAt,omitempty"`
	Customer        *User            `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Drivers         []DispatchDriver `json:"driverAssignments,omitempty" gorm:"foreignKey:DispatchID"`
}

// TableName specifies the table name
func (Dispatch) TableName() string {
	return "dispatches"
}

// HasAssignments reports whether any driver has been assigned
func (d *Dispatch) HasAssignments() bool {
	return len(d.Drivers) > 0
}

// DispatchDriver is the per-driver assignment sub-record of a dispatch.
// One row per (dispatch, driver); rows are never deleted individually,
// only together with the owning dispatch.
type DispatchDriver struct {
	gorm.Model
	DispatchID    uint       `json:"dispatchId" gorm:"not null;uniqueIndex:idx_dispatch_driver"`
	DriverID      uint       `json:"driverId" gorm:"not null;uniqueIndex:idx_dispatch_driver"`
	TruckID       uint       `json:"truckId" gorm:"not null"`
	Status        string     `json:"status" gorm:"not null;default:'assigned'"`
	AssignedAt    *time.Time `json:"assignedAt,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	AdminOverride bool       `json:"adminOverride" gorm:"not null;default:false"`
	Driver        *User      `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Truck         *Truck     `json:"truck,omitempty" gorm:"foreignKey:TruckID"`
}

// TableName specifies the table name
func (DispatchDriver) TableName() string {
	return "dispatch_drivers"
}

// ApplyStatus sets the driver status and stamps the matching timestamp the
// first time that status is reached. Timestamps already set are never
// overwritten, so re-asserting the same status is a safe no-op.
func (dd *DispatchDriver) ApplyStatus(status string, now time.Time) {
	dd.Status = status

	switch status {
	case DriverStatusAssigned:
		if dd.AssignedAt == nil {
			dd.AssignedAt = &now
		}
	case DriverStatusInProgress:
		if dd.StartedAt == nil {
			dd.StartedAt = &now
		}
	case DriverStatusCompleted:
		if dd.CompletedAt == nil {
			dd.CompletedAt = &now
		}
	}
}

// DispatchStatusEvent records the first time a dispatch reached a status.
// One row per (dispatch, status); existing rows are never updated.
type DispatchStatusEvent struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	DispatchID uint      `json:"dispatchId" gorm:"not null;uniqueIndex:idx_dispatch_status_event"`
	Status     string    `json:"status" gorm:"not null;uniqueIndex:idx_dispatch_status_event"`
	ReachedAt  time.Time `json:"reachedAt" gorm:"not null"`
}

// TableName specifies the table name
func (DispatchStatusEvent) TableName() string {
	return "dispatch_status_events"
}
