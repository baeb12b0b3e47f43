package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

// GetProfile returns the authenticated user's profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		c.JSON(200, user)
	}
}

// UpdateProfile updates the authenticated user's profile
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Username      string `json:"username"`
			Phone         string `json:"phone"`
			LicenseNumber string `json:"licenseNumber"`
			CompanyName   string `json:"companyName"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(404, gin.H{"error": "User not found"})
			return
		}

		if input.Username != "" {
			user.Username = input.Username
		}
		if input.Phone != "" {
			user.PhoneNumber = input.Phone
		}
		if input.LicenseNumber != "" {
			user.LicenseNumber = input.LicenseNumber
		}
		if input.CompanyName != "" {
			user.CompanyName = input.CompanyName
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update profile"})
			return
		}

		c.JSON(200, user)
	}
}

// ListUsers lists users of a given type (admin only)
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := c.Query("type")

		query := db.Order("username ASC")
		if userType != "" {
			query = query.Where("user_type = ?", userType)
		}

		var users []models.User
		if err := query.Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch users"})
			return
		}

		c.JSON(200, users)
	}
}
