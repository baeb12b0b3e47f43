package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

// GetNotificationPreferences returns the caller's preferences, creating the
// defaults if none exist yet
func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var prefs models.NotificationPreference
		err := db.Where("user_id = ?", userID).First(&prefs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prefs = *models.DefaultPreferences(userID)
			if err := db.Create(&prefs).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to create preferences"})
				return
			}
		} else if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch preferences"})
			return
		}

		c.JSON(200, prefs)
	}
}

// UpdateNotificationPreferences updates the caller's preferences
func UpdateNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			PushEnabled          *bool `json:"pushEnabled"`
			AssignmentAlerts     *bool `json:"assignmentAlerts"`
			DispatchStatusAlerts *bool `json:"dispatchStatusAlerts"`
			BroadcastMessages    *bool `json:"broadcastMessages"`
			EmailEnabled         *bool `json:"emailEnabled"`
			SMSEnabled           *bool `json:"smsEnabled"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var prefs models.NotificationPreference
		err := db.Where("user_id = ?", userID).First(&prefs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prefs = *models.DefaultPreferences(userID)
		} else if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch preferences"})
			return
		}

		if input.PushEnabled != nil {
			prefs.PushEnabled = *input.PushEnabled
		}
		if input.AssignmentAlerts != nil {
			prefs.AssignmentAlerts = *input.AssignmentAlerts
		}
		if input.DispatchStatusAlerts != nil {
			prefs.DispatchStatusAlerts = *input.DispatchStatusAlerts
		}
		if input.BroadcastMessages != nil {
			prefs.BroadcastMessages = *input.BroadcastMessages
		}
		if input.EmailEnabled != nil {
			prefs.EmailEnabled = *input.EmailEnabled
		}
		if input.SMSEnabled != nil {
			prefs.SMSEnabled = *input.SMSEnabled
		}

		if err := db.Save(&prefs).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update preferences"})
			return
		}

		c.JSON(200, prefs)
	}
}
