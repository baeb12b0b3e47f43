package models

import "gorm.io/gorm"

// AssignmentStatusCancelled is only ever written by orphan cleanup when the
// owning dispatch no longer exists; it is not part of the driver lifecycle.
const AssignmentStatusCancelled = "cancelled"

// Assignment is the top-level scheduling/reporting record for a driver+truck
// on a dispatch. Its status mirrors the dispatch aggregate status (all
// assignments of one dispatch converge to the same value after each
// reconciliation pass), not the individual driver's own status.
type Assignment struct {
	gorm.Model
	DispatchID   uint   `json:"dispatchId" gorm:"not null;index"`
	DriverID     uint   `json:"driverId" gorm:"not null;index"`
	TruckID      uint   `json:"truckId" gorm:"not null;index"`
	AssignedDate string `json:"assignedDate" gorm:"not null;index"` // yyyy-MM-dd, for availability queries
	Status       string `json:"status" gorm:"not null;default:'assigned'"`
	Driver       *User  `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	Truck        *Truck `json:"truck,omitempty" gorm:"foreignKey:TruckID"`
}

// TableName specifies the table name
func (Assignment) TableName() string {
	return "assignments"
}
