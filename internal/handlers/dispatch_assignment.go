package handlers

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/dispatch"
	"github.com/truckflow/dispatch-backend/internal/models"
	"github.com/truckflow/dispatch-backend/internal/services"
	"gorm.io/gorm"
)

type AssignDriverInput struct {
	DriverID uint `json:"driverId" binding:"required"`
	TruckID  uint `json:"truckId" binding:"required"`
}

// AssignDriver assigns a driver and truck to a dispatch (admin only). It
// creates the per-driver sub-record and the top-level assignment record,
// then reconciles so the aggregate moves to assigned.
func AssignDriver(db *gorm.DB, rec *dispatch.Reconciler, notifier *services.NotificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		var input AssignDriverInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var d models.Dispatch
		if err := db.First(&d, dispatchID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Dispatch not found"})
			return
		}

		// Drivers can only be added to an accepted or already-assigned
		// dispatch
		switch d.Status {
		case models.DispatchStatusAccepted, models.DispatchStatusAssigned, models.DispatchStatusInProgress:
		default:
			c.JSON(400, gin.H{"error": "Dispatch is not in an assignable state"})
			return
		}

		var driver models.User
		if err := db.First(&driver, input.DriverID).Error; err != nil || !driver.IsDriver() {
			c.JSON(400, gin.H{"error": "Driver not found"})
			return
		}

		var truck models.Truck
		if err := db.First(&truck, input.TruckID).Error; err != nil || !truck.IsActive {
			c.JSON(400, gin.H{"error": "Truck not found or inactive"})
			return
		}

		// Driver must not already hold a leg on this dispatch
		var existing int64
		db.Model(&models.DispatchDriver{}).
			Where("dispatch_id = ? AND driver_id = ?", d.ID, input.DriverID).
			Count(&existing)
		if existing > 0 {
			c.JSON(400, gin.H{"error": "Driver is already assigned to this dispatch"})
			return
		}

		// Driver and truck must be free on the scheduled date
		var busy int64
		db.Model(&models.Assignment{}).
			Where("assigned_date = ? AND status IN ?", d.ScheduledDate, []string{
				models.DriverStatusAssigned,
				models.DriverStatusInProgress,
			}).
			Where("driver_id = ? OR truck_id = ?", input.DriverID, input.TruckID).
			Count(&busy)
		if busy > 0 {
			c.JSON(400, gin.H{"error": "Driver or truck already has an assignment on the scheduled date"})
			return
		}

		now := time.Now()
		dd := models.DispatchDriver{
			DispatchID: d.ID,
			DriverID:   input.DriverID,
			TruckID:    input.TruckID,
			Status:     models.DriverStatusAssigned,
			AssignedAt: &now,
		}
		assignment := models.Assignment{
			DispatchID:   d.ID,
			DriverID:     input.DriverID,
			TruckID:      input.TruckID,
			AssignedDate: d.ScheduledDate,
			Status:       models.DriverStatusAssigned,
		}

		// Start transaction
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		if err := tx.Create(&dd).Error; err != nil {
			tx.Rollback()
			c.JSON(500, gin.H{"error": "Failed to create driver assignment"})
			return
		}
		if err := tx.Create(&assignment).Error; err != nil {
			tx.Rollback()
			c.JSON(500, gin.H{"error": "Failed to create assignment record"})
			return
		}
		if err := tx.Commit().Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to complete transaction"})
			return
		}

		ctx := c.Request.Context()

		// Converge the aggregate right away; the pub/sub trigger covers
		// any concurrent writers
		if _, err := rec.Reconcile(ctx, d.ID); err != nil {
			log.Printf("Reconcile after assignment on dispatch %d failed: %v", d.ID, err)
		}
		services.PublishAssignmentUpdate(ctx, d.ID)
		services.SetDriverAvailability(ctx, input.DriverID, false)

		// Assignment-time notifications are sent here, not by the
		// aggregate fan-out
		driverID := input.DriverID
		customerID := d.CustomerID
		notes := []models.Notification{
			{
				Audience:    models.AudienceDriver,
				RecipientID: &driverID,
				Type:        models.NotificationDriverAssigned,
				Priority:    models.PriorityHigh,
				Title:       "New Assignment",
				Body:        fmt.Sprintf("You have been assigned to dispatch %s on %s (truck %s)", d.DispatchCode, d.ScheduledDate, truck.PlateNumber),
				DispatchID:  d.ID,
				DriverID:    driverID,
			},
			{
				Audience:    models.AudienceCustomer,
				RecipientID: &customerID,
				Type:        models.NotificationDriverAssigned,
				Priority:    models.PriorityNormal,
				Title:       "Driver Assigned",
				Body:        fmt.Sprintf("%s has been assigned to your dispatch %s", driver.Username, d.DispatchCode),
				DispatchID:  d.ID,
				DriverID:    driverID,
			},
		}
		for _, note := range notes {
			if err := notifier.Send(ctx, note); err != nil {
				log.Printf("Failed to deliver assignment notification for dispatch %d: %v", d.ID, err)
			}
		}

		c.JSON(201, gin.H{
			"message":    "Driver assigned successfully",
			"dispatchId": d.ID,
			"assignment": dd,
		})
	}
}

// GetDriverSchedule returns a driver's assignments, optionally for one date
func GetDriverSchedule(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can view their schedule"})
			return
		}

		query := db.Preload("Truck").
			Where("driver_id = ?", driverID).
			Order("assigned_date ASC")
		if date := c.Query("date"); date != "" {
			query = query.Where("assigned_date = ?", date)
		}

		var assignments []models.Assignment
		if err := query.Find(&assignments).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch schedule"})
			return
		}

		c.JSON(200, assignments)
	}
}

// GetAvailableDrivers lists drivers without an assignment on a date (admin
// only)
func GetAvailableDrivers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		if _, err := time.Parse("2006-01-02", date); err != nil {
			c.JSON(400, gin.H{"error": "Invalid date, expected yyyy-MM-dd"})
			return
		}

		var drivers []models.User
		if err := db.
			Where("user_type = ?", models.UserTypeDriver).
			Where(`id NOT IN (
				SELECT driver_id FROM assignments
				WHERE deleted_at IS NULL AND assigned_date = ? AND status IN ?)`,
				date, []string{models.DriverStatusAssigned, models.DriverStatusInProgress}).
			Order("username ASC").
			Find(&drivers).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch available drivers"})
			return
		}

		c.JSON(200, gin.H{"date": date, "drivers": drivers})
	}
}
