package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/dispatch"
	"github.com/truckflow/dispatch-backend/internal/models"
	"github.com/truckflow/dispatch-backend/internal/services"
	"gorm.io/gorm"
)

// ForceStartDispatch moves every driver on the dispatch to in progress at
// once (admin only)
func ForceStartDispatch(db *gorm.DB, rec *dispatch.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		adminID := c.GetUint("userId")
		var admin models.User
		if err := db.First(&admin, adminID).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to load admin account"})
			return
		}

		ctx := c.Request.Context()
		started, err := rec.ForceStart(ctx, uint(dispatchID), adminID, admin.Username)
		if err != nil {
			switch {
			case errors.Is(err, dispatch.ErrDispatchNotFound):
				c.JSON(404, gin.H{"error": "Dispatch not found"})
			case errors.Is(err, dispatch.ErrNoDrivers):
				c.JSON(400, gin.H{"error": "Dispatch has no assigned drivers"})
			default:
				c.JSON(500, gin.H{"error": "Failed to force start dispatch"})
			}
			return
		}

		services.PublishAssignmentUpdate(ctx, uint(dispatchID))

		c.JSON(200, gin.H{
			"message":            "Dispatch started",
			"dispatchId":         dispatchID,
			"startedDriverCount": started,
		})
	}
}

type AdminDriverStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// AdminSetDriverStatus lets an admin transition one driver's leg on behalf of
// the driver. The driver is told who made the change.
func AdminSetDriverStatus(db *gorm.DB, rec *dispatch.Reconciler, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}
		driverID, err := strconv.ParseUint(c.Param("driverId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver ID"})
			return
		}

		var input AdminDriverStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		adminID := c.GetUint("userId")
		var admin models.User
		if err := db.First(&admin, adminID).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to load admin account"})
			return
		}

		ctx := c.Request.Context()
		dd, err := rec.SetDriverStatus(ctx, uint(dispatchID), uint(driverID), input.Status,
			dispatch.Actor{AdminID: adminID, AdminName: admin.Username})
		if err != nil {
			respondTransitionError(c, err)
			return
		}

		services.PublishAssignmentUpdate(ctx, uint(dispatchID))
		hub.SendDriverLegUpdate(services.DriverLegUpdate{
			DispatchID: dd.DispatchID,
			DriverID:   dd.DriverID,
			Status:     dd.Status,
			ByAdmin:    true,
		})

		c.JSON(200, gin.H{
			"message":    "Driver status updated",
			"dispatchId": dd.DispatchID,
			"driverId":   dd.DriverID,
			"status":     dd.Status,
		})
	}
}

// ReconcileDispatch recomputes the aggregate status on demand (admin only).
// Safe to call any number of times; a dispatch already in sync is untouched.
func ReconcileDispatch(rec *dispatch.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		dispatchID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid dispatch ID"})
			return
		}

		status, err := rec.Reconcile(c.Request.Context(), uint(dispatchID))
		if err != nil {
			if errors.Is(err, dispatch.ErrDispatchNotFound) {
				c.JSON(404, gin.H{"error": "Dispatch not found"})
				return
			}
			log.Printf("Manual reconcile of dispatch %d failed: %v", dispatchID, err)
			c.JSON(500, gin.H{"error": "Failed to reconcile dispatch"})
			return
		}

		c.JSON(200, gin.H{
			"dispatchId": dispatchID,
			"status":     status,
		})
	}
}
