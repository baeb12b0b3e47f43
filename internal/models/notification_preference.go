package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`

	// Specific notification preferences
	AssignmentAlerts     bool `gorm:"column:assignment_alerts;default:true" json:"assignmentAlerts"`
	DispatchStatusAlerts bool `gorm:"column:dispatch_status_alerts;default:true" json:"dispatchStatusAlerts"`
	BroadcastMessages    bool `gorm:"column:broadcast_messages;default:true" json:"broadcastMessages"`

	// Email and SMS preferences
	EmailEnabled bool `gorm:"column:email_enabled;default:true" json:"emailEnabled"`
	SMSEnabled   bool `gorm:"column:sms_enabled;default:true" json:"smsEnabled"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:               userID,
		PushEnabled:          true,
		AssignmentAlerts:     true,
		DispatchStatusAlerts: true,
		BroadcastMessages:    true,
		EmailEnabled:         true,
		SMSEnabled:           true,
	}
}
