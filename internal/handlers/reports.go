package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/truckflow/dispatch-backend/internal/models"
	"gorm.io/gorm"
)

// DispatchStatusSummary counts dispatches per aggregate status (admin only)
func DispatchStatusSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		type row struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		}

		var rows []row
		if err := db.Model(&models.Dispatch{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to build summary"})
			return
		}

		summary := gin.H{}
		var total int64
		for _, r := range rows {
			summary[r.Status] = r.Count
			total += r.Count
		}

		c.JSON(200, gin.H{"total": total, "byStatus": summary})
	}
}

// CompletionsReport counts completed dispatches per day over a date range
// (admin only). The counts come from the status event log, so a dispatch is
// attributed to the day it first reached completed.
func CompletionsReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		to := c.DefaultQuery("to", time.Now().Format("2006-01-02"))
		from := c.DefaultQuery("from", time.Now().AddDate(0, 0, -30).Format("2006-01-02"))

		fromDate, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid from date, expected yyyy-MM-dd"})
			return
		}
		toDate, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid to date, expected yyyy-MM-dd"})
			return
		}
		if toDate.Before(fromDate) {
			c.JSON(400, gin.H{"error": "to must not be before from"})
			return
		}

		type row struct {
			Day   string `json:"day"`
			Count int64  `json:"count"`
		}

		var rows []row
		if err := db.Model(&models.DispatchStatusEvent{}).
			Select("TO_CHAR(reached_at, 'YYYY-MM-DD') AS day, COUNT(*) AS count").
			Where("status = ?", models.DispatchStatusCompleted).
			Where("reached_at >= ? AND reached_at < ?", fromDate, toDate.AddDate(0, 0, 1)).
			Group("day").
			Order("day ASC").
			Scan(&rows).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to build report"})
			return
		}

		c.JSON(200, gin.H{
			"from":        from,
			"to":          to,
			"completions": rows,
		})
	}
}
