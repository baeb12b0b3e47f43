package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/dispatch"
	"github.com/truckflow/dispatch-backend/internal/models"
	"github.com/truckflow/dispatch-backend/internal/services"
	"gorm.io/gorm"
)

// GetDriverDispatches lists the dispatches the authenticated driver is
// assigned to
func GetDriverDispatches(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		query := db.Preload("Customer").
			Preload("Drivers", "driver_id = ?", driverID).
			Preload("Drivers.Truck").
			Where(`id IN (
				SELECT dispatch_id FROM dispatch_drivers
				WHERE deleted_at IS NULL AND driver_id = ?)`, driverID).
			Order("scheduled_date ASC")

		if status := c.Query("status"); status != "" {
			query = query.Where(`id IN (
				SELECT dispatch_id FROM dispatch_drivers
				WHERE deleted_at IS NULL AND driver_id = ? AND status = ?)`,
				driverID, status)
		}

		var dispatches []models.Dispatch
		if err := query.Find(&dispatches).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch dispatches"})
			return
		}

		c.JSON(200, dispatches)
	}
}

// StartDispatchLeg marks the driver's own leg as in progress
func StartDispatchLeg(rec *dispatch.Reconciler, hub *services.Hub) gin.HandlerFunc {
	return driverTransition(rec, hub, models.DriverStatusInProgress)
}

// CompleteDispatchLeg marks the driver's own leg as completed
func CompleteDispatchLeg(rec *dispatch.Reconciler, hub *services.Hub) gin.HandlerFunc {
	return driverTransition(rec, hub, models.DriverStatusCompleted)
}

func driverTransition(rec *dispatch.Reconciler, hub *services.Hub, newStatus string) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		driverID := c.GetUint("userId")
		ctx := c.Request.Context()

		dd, err := rec.SetDriverStatus(ctx, uint(dispatchID), driverID, newStatus,
			dispatch.Actor{DriverID: driverID})
		if err != nil {
			respondTransitionError(c, err)
			return
		}

		services.PublishAssignmentUpdate(ctx, uint(dispatchID))
		hub.SendDriverLegUpdate(services.DriverLegUpdate{
			DispatchID: dd.DispatchID,
			DriverID:   dd.DriverID,
			Status:     dd.Status,
		})
		if newStatus == models.DriverStatusCompleted {
			services.SetDriverAvailability(ctx, driverID, true)
		}

		c.JSON(200, gin.H{
			"message":    "Status updated successfully",
			"dispatchId": dd.DispatchID,
			"driverId":   dd.DriverID,
			"status":     dd.Status,
		})
	}
}

type LegStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateDispatchLegStatus is the generic per-leg status RPC. It accepts the
// same transitions as the start and complete endpoints.
func UpdateDispatchLegStatus(rec *dispatch.Reconciler, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		var input LegStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		driverID := c.GetUint("userId")
		ctx := c.Request.Context()

		dd, err := rec.SetDriverStatus(ctx, uint(dispatchID), driverID, input.Status,
			dispatch.Actor{DriverID: driverID})
		if err != nil {
			respondTransitionError(c, err)
			return
		}

		services.PublishAssignmentUpdate(ctx, uint(dispatchID))
		hub.SendDriverLegUpdate(services.DriverLegUpdate{
			DispatchID: dd.DispatchID,
			DriverID:   dd.DriverID,
			Status:     dd.Status,
		})
		if input.Status == models.DriverStatusCompleted {
			services.SetDriverAvailability(ctx, driverID, true)
		}

		c.JSON(200, gin.H{
			"message":    "Status updated successfully",
			"dispatchId": dd.DispatchID,
			"driverId":   dd.DriverID,
			"status":     dd.Status,
		})
	}
}

func respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dispatch.ErrDispatchNotFound):
		c.JSON(404, gin.H{"error": "Dispatch not found"})
	case errors.Is(err, dispatch.ErrDriverNotAssigned):
		c.JSON(404, gin.H{"error": "You are not assigned to this dispatch"})
	case errors.Is(err, dispatch.ErrInvalidStatus):
		c.JSON(400, gin.H{"error": "Invalid status value"})
	default:
		c.JSON(500, gin.H{"error": "Failed to update status"})
	}
}

type AvailabilityInput struct {
	Available *bool `json:"available" binding:"required"`
}

// UpdateDriverAvailability stores the driver's availability flag in redis
func UpdateDriverAvailability() gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input AvailabilityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := services.SetDriverAvailability(c.Request.Context(), driverID, *input.Available); err != nil {
			c.JSON(500, gin.H{"error": "Failed to update availability"})
			return
		}

		c.JSON(200, gin.H{"available": *input.Available})
	}
}

// GetDriverStatus returns the driver's availability and any in-progress leg
func GetDriverStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		available, err := services.GetDriverAvailability(c.Request.Context(), driverID)
		if err != nil {
			available = true
		}

		var current models.DispatchDriver
		result := db.Preload("Truck").
			Where("driver_id = ? AND status = ?", driverID, models.DriverStatusInProgress).
			First(&current)

		resp := gin.H{"available": available}
		if result.Error == nil {
			resp["currentLeg"] = current
		}

		c.JSON(200, resp)
	}
}
