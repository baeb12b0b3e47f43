package models

import "gorm.io/gorm"

// Notification audiences
const (
	AudienceCustomer = "customer"
	AudienceDriver   = "driver"
	AudienceAdmin    = "admin"
)

// Notification priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification type tags
const (
	NotificationDriverAssigned     = "driver_assigned"
	NotificationTripStarted        = "trip_started"
	NotificationTripStartedAdmin   = "trip_started_by_admin"
	NotificationTripCompleted      = "trip_completed"
	NotificationDispatchInProgress = "dispatch_in_progress"
	NotificationDispatchCompleted  = "dispatch_completed"
	NotificationDispatchAccepted   = "dispatch_accepted"
	NotificationDispatchRejected   = "dispatch_rejected"
	NotificationBroadcast          = "broadcast"
)

// Notification is a persisted message for a customer, a driver, or the
// global admin feed (RecipientID nil). Immutable after creation except for
// the read flag.
type Notification struct {
	gorm.Model
	Audience    string `json:"audience" gorm:"not null"`
	RecipientID *uint  `json:"recipientId,omitempty" gorm:"index"`
	Type        string `json:"type" gorm:"not null"`
	Priority    string `json:"priority" gorm:"not null;default:'normal'"`
	Title       string `json:"title" gorm:"not null"`
	Body        string `json:"body" gorm:"not null"`
	DispatchID  uint   `json:"dispatchId,omitempty" gorm:"index"`
	DriverID    uint   `json:"driverId,omitempty"`
	Read        bool   `json:"read" gorm:"not null;default:false"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}
