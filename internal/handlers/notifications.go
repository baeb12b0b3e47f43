package handlers

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"github.com/truckflow/dispatch-backend/internal/services"
	"gorm.io/gorm"
)

type FCMTokenInput struct {
	Token string `json:"token" binding:"required"`
}

// RegisterFCMToken stores the caller's device token and subscribes it to the
// topic for their user type
func RegisterFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var input FCMTokenInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userID).
			Update("fcm_token", input.Token).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save token"})
			return
		}

		topic := userType + "s"
		if err := services.SubscribeToTopic(c.Request.Context(), []string{input.Token}, topic); err != nil {
			log.Printf("Failed to subscribe user %d to topic %s: %v", userID, topic, err)
		}

		c.JSON(200, gin.H{"message": "Token registered successfully"})
	}
}

// RemoveFCMToken clears the caller's device token, e.g. on logout
func RemoveFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if user.FCMToken != "" {
			topic := userType + "s"
			if err := services.UnsubscribeFromTopic(c.Request.Context(), []string{user.FCMToken}, topic); err != nil {
				log.Printf("Failed to unsubscribe user %d from topic %s: %v", userID, topic, err)
			}
		}

		if err := db.Model(&user).Update("fcm_token", "").Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove token"})
			return
		}

		c.JSON(200, gin.H{"message": "Token removed successfully"})
	}
}

// GetMyNotifications returns the caller's notifications, newest first
func GetMyNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		query := db.Where("recipient_id = ?", userID)
		if c.Query("unread") == "true" {
			query = query.Where("read = ?", false)
		}

		var total int64
		query.Model(&models.Notification{}).Count(&total)

		var notifications []models.Notification
		if err := query.Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch notifications"})
			return
		}

		c.JSON(200, gin.H{
			"notifications": notifications,
			"page":          page,
			"limit":         limit,
			"total":         total,
		})
	}
}

// GetUnreadCount returns how many unread notifications the caller has
func GetUnreadCount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var count int64
		if err := db.Model(&models.Notification{}).
			Where("recipient_id = ? AND read = ?", userID, false).
			Count(&count).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to count notifications"})
			return
		}

		c.JSON(200, gin.H{"unread": count})
	}
}

// MarkNotificationRead marks one of the caller's notifications as read
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		notificationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid notification ID"})
			return
		}

		result := db.Model(&models.Notification{}).
			Where("id = ? AND recipient_id = ?", notificationID, userID).
			Update("read", true)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update notification"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(200, gin.H{"message": "Notification marked as read"})
	}
}

// GetAdminFeed returns the admin activity feed, the notifications with no
// recipient (admin only)
func GetAdminFeed(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}

		var notifications []models.Notification
		if err := db.Where("recipient_id IS NULL").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch admin feed"})
			return
		}

		c.JSON(200, gin.H{"notifications": notifications, "page": page, "limit": limit})
	}
}

type BroadcastInput struct {
	Audience string `json:"audience" binding:"required,oneof=customer driver admin"`
	Title    string `json:"title" binding:"required"`
	Body     string `json:"body" binding:"required"`
	Priority string `json:"priority"`
}

// SendBroadcastNotification delivers a message to every user of an audience
// (admin only)
func SendBroadcastNotification(db *gorm.DB, notifier *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input BroadcastInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Priority == "" {
			input.Priority = models.PriorityNormal
		}

		var users []models.User
		if err := db.Where("user_type = ?", input.Audience).Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch recipients"})
			return
		}

		ctx := c.Request.Context()
		sent := 0
		for _, user := range users {
			recipientID := user.ID
			note := models.Notification{
				Audience:    input.Audience,
				RecipientID: &recipientID,
				Type:        models.NotificationBroadcast,
				Priority:    input.Priority,
				Title:       input.Title,
				Body:        input.Body,
			}
			if err := notifier.Send(ctx, note); err != nil {
				log.Printf("Failed to deliver broadcast to user %d: %v", user.ID, err)
				continue
			}
			sent++
		}

		c.JSON(200, gin.H{
			"message":        "Broadcast sent",
			"recipientCount": sent,
		})
	}
}
