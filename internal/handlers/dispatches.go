package handlers

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"github.com/truckflow/dispatch-backend/internal/services"
	"gorm.io/gorm"
)

type CreateDispatchInput struct {
	PickupAddress string  `json:"pickupAddress" binding:"required"`
	DestAddress   string  `json:"destAddress" binding:"required"`
	CargoDesc     string  `json:"cargoDescription"`
	WeightTons    float64 `json:"weightTons"`
	ScheduledDate string  `json:"scheduledDate" binding:"required"`
}

// CreateDispatch files a new dispatch request (customer only)
func CreateDispatch(db *gorm.DB, notifier *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeCustomer) {
			c.JSON(403, gin.H{"error": "Only customers can create dispatch requests"})
			return
		}

		var input CreateDispatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if _, err := time.Parse("2006-01-02", input.ScheduledDate); err != nil {
			c.JSON(400, gin.H{"error": "Invalid scheduled date, expected yyyy-MM-dd"})
			return
		}

		now := time.Now()
		dispatch := models.Dispatch{
			DispatchCode:    fmt.Sprintf("DSP-%s-%d", now.Format("20060102"), now.UnixNano()%100000),
			CustomerID:      customerID,
			PickupAddr:      input.PickupAddress,
			DestAddr:        input.DestAddress,
			CargoDesc:       input.CargoDesc,
			WeightTons:      input.WeightTons,
			ScheduledDate:   input.ScheduledDate,
			Status:          models.DispatchStatusPending,
			CurrentStatus:   models.DispatchStatusPending,
			CurrentStatusAt: &now,
		}

		if err := db.Create(&dispatch).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create dispatch: " + err.Error()})
			return
		}

		// Admin feed entry for the new request; failure to notify must not
		// fail the create
		note := models.Notification{
			Audience:   models.AudienceAdmin,
			Type:       "dispatch_requested",
			Priority:   models.PriorityNormal,
			Title:      "New Dispatch Request",
			Body:       fmt.Sprintf("Dispatch %s requested for %s", dispatch.DispatchCode, dispatch.ScheduledDate),
			DispatchID: dispatch.ID,
		}
		if err := notifier.Send(c.Request.Context(), note); err != nil {
			log.Printf("Failed to notify admins of dispatch %d: %v", dispatch.ID, err)
		}

		c.JSON(201, dispatch)
	}
}

// GetDispatch returns one dispatch with its driver assignments
func GetDispatch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		var dispatch models.Dispatch
		if err := db.Preload("Customer").
			Preload("Drivers").
			Preload("Drivers.Driver").
			Preload("Drivers.Truck").
			First(&dispatch, dispatchID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Dispatch not found"})
			return
		}

		// Customers see their own dispatches, drivers the ones they are
		// assigned to, admins everything
		switch userType {
		case string(models.UserTypeCustomer):
			if dispatch.CustomerID != userID {
				c.JSON(403, gin.H{"error": "Unauthorized to view this dispatch"})
				return
			}
		case string(models.UserTypeDriver):
			assigned := false
			for _, dd := range dispatch.Drivers {
				if dd.DriverID == userID {
					assigned = true
					break
				}
			}
			if !assigned {
				c.JSON(403, gin.H{"error": "Unauthorized to view this dispatch"})
				return
			}
		}

		c.JSON(200, dispatch)
	}
}

// ListDispatches lists dispatches; admins can filter by status, customers
// always see only their own
func ListDispatches(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		userType := c.GetString("userType")

		query := db.Preload("Customer").Preload("Drivers").Order("created_at DESC")

		switch userType {
		case string(models.UserTypeCustomer):
			query = query.Where("customer_id = ?", userID)
		case string(models.UserTypeDriver):
			query = query.Where(`id IN (
				SELECT dispatch_id FROM dispatch_drivers
				WHERE deleted_at IS NULL AND driver_id = ?)`, userID)
		}

		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var dispatches []models.Dispatch
		if err := query.Find(&dispatches).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch dispatches"})
			return
		}

		c.JSON(200, dispatches)
	}
}

// GetDispatchStatus returns just the aggregate status, answering from the
// redis cache when it is warm
func GetDispatchStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		if status, err := services.GetDispatchStatus(c.Request.Context(), uint(dispatchID)); err == nil {
			c.JSON(200, gin.H{"dispatchId": dispatchID, "status": status})
			return
		}

		var dispatch models.Dispatch
		if err := db.Select("id", "status", "current_status_at").First(&dispatch, dispatchID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Dispatch not found"})
			return
		}

		c.JSON(200, gin.H{
			"dispatchId": dispatch.ID,
			"status":     dispatch.Status,
			"statusAt":   dispatch.CurrentStatusAt,
		})
	}
}

// AcceptDispatch moves a pending dispatch to accepted (admin only). Pending,
// accepted and rejected are the admin-set states; once drivers are assigned
// the status is derived instead.
func AcceptDispatch(db *gorm.DB, notifier *services.NotificationService) gin.HandlerFunc {
	return adminDecision(db, notifier, models.DispatchStatusAccepted,
		models.NotificationDispatchAccepted, "Dispatch Accepted",
		"Your dispatch request %s has been accepted")
}

// RejectDispatch moves a pending dispatch to rejected (admin only)
func RejectDispatch(db *gorm.DB, notifier *services.NotificationService) gin.HandlerFunc {
	return adminDecision(db, notifier, models.DispatchStatusRejected,
		models.NotificationDispatchRejected, "Dispatch Rejected",
		"Your dispatch request %s has been rejected")
}

func adminDecision(db *gorm.DB, notifier *services.NotificationService, newStatus, ntype, title, bodyFmt string) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		var dispatch models.Dispatch
		if err := db.First(&dispatch, dispatchID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Dispatch not found"})
			return
		}

		if dispatch.Status != models.DispatchStatusPending {
			c.JSON(400, gin.H{"error": "Only pending dispatches can be accepted or rejected"})
			return
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":            newStatus,
			"current_status":    newStatus,
			"current_status_at": now,
			"updated_at":        now,
		}
		if err := db.Model(&dispatch).Updates(updates).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update dispatch status"})
			return
		}

		customerID := dispatch.CustomerID
		note := models.Notification{
			Audience:    models.AudienceCustomer,
			RecipientID: &customerID,
			Type:        ntype,
			Priority:    models.PriorityHigh,
			Title:       title,
			Body:        fmt.Sprintf(bodyFmt, dispatch.DispatchCode),
			DispatchID:  dispatch.ID,
		}
		if err := notifier.Send(c.Request.Context(), note); err != nil {
			log.Printf("Failed to notify customer of dispatch %d decision: %v", dispatch.ID, err)
		}

		c.JSON(200, gin.H{
			"message":    "Dispatch " + newStatus,
			"dispatchId": dispatch.ID,
			"status":     newStatus,
		})
	}
}

// DeleteDispatch removes a dispatch with its driver records and assignments
// (admin only)
func DeleteDispatch(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		var dispatch models.Dispatch
		if err := db.First(&dispatch, dispatchID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Dispatch not found"})
			return
		}

		// Start transaction
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		if err := tx.Where("dispatch_id = ?", dispatch.ID).Delete(&models.DispatchDriver{}).Error; err != nil {
			tx.Rollback()
			c.JSON(500, gin.H{"error": "Failed to delete driver records"})
			return
		}

		if err := tx.Where("dispatch_id = ?", dispatch.ID).Delete(&models.Assignment{}).Error; err != nil {
			tx.Rollback()
			c.JSON(500, gin.H{"error": "Failed to delete assignments"})
			return
		}

		if err := tx.Delete(&dispatch).Error; err != nil {
			tx.Rollback()
			c.JSON(500, gin.H{"error": "Failed to delete dispatch"})
			return
		}

		if err := tx.Commit().Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to complete transaction"})
			return
		}

		c.JSON(200, gin.H{"message": "Dispatch deleted successfully"})
	}
}
