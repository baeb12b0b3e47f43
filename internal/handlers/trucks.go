package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

type TruckInput struct {
	PlateNumber  string  `json:"plateNumber" binding:"required"`
	Make         string  `json:"make" binding:"required"`
	Model        string  `json:"model"`
	CapacityTons float64 `json:"capacityTons"`
	Notes        string  `json:"notes"`
}

// CreateTruck registers a new truck in the fleet (admin only)
func CreateTruck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input TruckInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		truck := models.Truck{
			PlateNumber:  input.PlateNumber,
			Make:         input.Make,
			TruckModel:   input.Model,
			CapacityTons: input.CapacityTons,
			IsActive:     true,
			Notes:        input.Notes,
		}

		if err := db.Create(&truck).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create truck: " + err.Error()})
			return
		}

		c.JSON(201, truck)
	}
}

// ListTrucks lists all trucks
func ListTrucks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Order("plate_number ASC")
		if c.Query("active") == "true" {
			query = query.Where("is_active = ?", true)
		}

		var trucks []models.Truck
		if err := query.Find(&trucks).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch trucks"})
			return
		}

		c.JSON(200, trucks)
	}
}

// UpdateTruck updates truck details (admin only)
func UpdateTruck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truckID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid truck ID"})
			return
		}

		var truck models.Truck
		if err := db.First(&truck, truckID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Truck not found"})
			return
		}

		var input struct {
			Make         string   `json:"make"`
			Model        string   `json:"model"`
			CapacityTons *float64 `json:"capacityTons"`
			IsActive     *bool    `json:"isActive"`
			Notes        *string  `json:"notes"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Make != "" {
			truck.Make = input.Make
		}
		if input.Model != "" {
			truck.TruckModel = input.Model
		}
		if input.CapacityTons != nil {
			truck.CapacityTons = *input.CapacityTons
		}
		if input.IsActive != nil {
			truck.IsActive = *input.IsActive
		}
		if input.Notes != nil {
			truck.Notes = *input.Notes
		}

		if err := db.Save(&truck).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update truck"})
			return
		}

		c.JSON(200, truck)
	}
}

// DeleteTruck removes a truck from the fleet (admin only)
func DeleteTruck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		truckID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid truck ID"})
			return
		}

		// Trucks on an active assignment cannot be removed
		var active int64
		db.Model(&models.Assignment{}).
			Where("truck_id = ? AND status IN ?", truckID, []string{
				models.DriverStatusAssigned,
				models.DriverStatusInProgress,
			}).
			Count(&active)
		if active > 0 {
			c.JSON(400, gin.H{"error": "Truck has active assignments"})
			return
		}

		if err := db.Delete(&models.Truck{}, truckID).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete truck"})
			return
		}

		c.JSON(200, gin.H{"message": "Truck deleted successfully"})
	}
}

// GetAvailableTrucks lists active trucks without an assignment on a date
func GetAvailableTrucks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		if _, err := time.Parse("2006-01-02", date); err != nil {
			c.JSON(400, gin.H{"error": "Invalid date, expected yyyy-MM-dd"})
			return
		}

		var trucks []models.Truck
		if err := db.
			Where("is_active = ?", true).
			Where(`id NOT IN (
				SELECT truck_id FROM assignments
				WHERE deleted_at IS NULL AND assigned_date = ? AND status IN ?)`,
				date, []string{models.DriverStatusAssigned, models.DriverStatusInProgress}).
			Order("plate_number ASC").
			Find(&trucks).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch available trucks"})
			return
		}

		c.JSON(200, gin.H{"date": date, "trucks": trucks})
	}
}
