package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/truckflow/dispatch-backend/internal/database"
	"github.com/truckflow/dispatch-backend/internal/dispatch"
	"github.com/truckflow/dispatch-backend/internal/handlers"
	"github.com/truckflow/dispatch-backend/internal/middleware"
	"github.com/truckflow/dispatch-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database with better error handling
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Firebase (optional - will log warning if not configured)
	if err := services.InitFirebase(); err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Wire the reconciliation engine
	notifier := services.NewNotificationService(db, hub)
	store := dispatch.NewGormStore(db)
	rec := dispatch.NewReconciler(store, notifier, services.NewStatusEvents(hub))

	ctx := context.Background()
	go rec.RunSweep(ctx, 5*time.Minute)
	go rec.RunTrigger(ctx, services.SubscribeAssignmentUpdates(ctx))

	// Initialize router
	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
			}

			// Driver routes
			driver := protected.Group("/driver")
			{
				driver.GET("/dispatches", handlers.GetDriverDispatches(db))
				driver.GET("/schedule", handlers.GetDriverSchedule(db))
				driver.POST("/availability", handlers.UpdateDriverAvailability())
				driver.GET("/status", handlers.GetDriverStatus(db))
				driver.POST("/dispatches/:id/start", handlers.StartDispatchLeg(rec, hub))
				driver.POST("/dispatches/:id/complete", handlers.CompleteDispatchLeg(rec, hub))
				driver.PATCH("/dispatches/:id/status", handlers.UpdateDispatchLegStatus(rec, hub))
			}

			// Dispatch routes
			dispatches := protected.Group("/dispatches")
			{
				dispatches.POST("", handlers.CreateDispatch(db, notifier))
				dispatches.GET("", handlers.ListDispatches(db))
				dispatches.GET("/:id", handlers.GetDispatch(db))
				dispatches.GET("/:id/status", handlers.GetDispatchStatus(db))
			}

			// Admin routes
			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/users", handlers.ListUsers(db))
				admin.GET("/drivers/available", handlers.GetAvailableDrivers(db))

				admin.POST("/dispatches/:id/accept", handlers.AcceptDispatch(db, notifier))
				admin.POST("/dispatches/:id/reject", handlers.RejectDispatch(db, notifier))
				admin.POST("/dispatches/:id/assign", handlers.AssignDriver(db, rec, notifier))
				admin.POST("/dispatches/:id/force-start", handlers.ForceStartDispatch(db, rec))
				admin.POST("/dispatches/:id/reconcile", handlers.ReconcileDispatch(rec))
				admin.PATCH("/dispatches/:id/drivers/:driverId/status", handlers.AdminSetDriverStatus(db, rec, hub))
				admin.DELETE("/dispatches/:id", handlers.DeleteDispatch(db))

				admin.POST("/trucks", handlers.CreateTruck(db))
				admin.PUT("/trucks/:id", handlers.UpdateTruck(db))
				admin.DELETE("/trucks/:id", handlers.DeleteTruck(db))

				admin.GET("/feed", handlers.GetAdminFeed(db))
				admin.POST("/broadcast", handlers.SendBroadcastNotification(db, notifier))

				admin.GET("/reports/status-summary", handlers.DispatchStatusSummary(db))
				admin.GET("/reports/completions", handlers.CompletionsReport(db))

				admin.GET("/ws/stats", handlers.WebSocketStats(hub))
			}

			// Truck routes
			trucks := protected.Group("/trucks")
			{
				trucks.GET("", handlers.ListTrucks(db))
				trucks.GET("/available", handlers.GetAvailableTrucks(db))
			}

			// Notification routes
			notifications := protected.Group("/notifications")
			{
				notifications.POST("/register-token", handlers.RegisterFCMToken(db))
				notifications.DELETE("/remove-token", handlers.RemoveFCMToken(db))
				notifications.GET("", handlers.GetMyNotifications(db))
				notifications.GET("/unread-count", handlers.GetUnreadCount(db))
				notifications.POST("/:id/read", handlers.MarkNotificationRead(db))

				// Notification preferences
				notifications.GET("/preferences", handlers.GetNotificationPreferences(db))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
