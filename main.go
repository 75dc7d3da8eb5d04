package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/controllers"
	"github.com/lastnext/maintenance-api/middleware"
	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/services"
	"github.com/lastnext/maintenance-api/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.Println("Starting Maintenance API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// File storage: S3 when a bucket is configured, local disk otherwise
	utils.UploadDir = cfg.UploadDir
	var storage services.Storage
	if cfg.UsesS3() {
		s3Storage, err := services.NewS3Storage(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		storage = s3Storage
		log.Printf("Storing uploads in S3 bucket %s", cfg.AWSS3Bucket)
	} else {
		storage = services.NewLocalStorage(cfg.UploadDir)
		log.Printf("Storing uploads in %s", cfg.UploadDir)
	}
	services.InitFileService(storage)

	prometheus.MustRegister(
		middleware.HTTPRequestsTotal,
		middleware.HTTPRequestDuration,
		services.MaintenanceMarkedOverdue,
	)

	sweeper, err := services.NewOverdueSweeper(services.NewMaintenanceService(db, services.GetFileService()), cfg.OverdueSweepSchedule)
	if err != nil {
		log.Fatalf("Failed to schedule overdue sweep: %v", err)
	}
	sweeper.Start()
	log.Printf("Overdue sweep scheduled: %s", cfg.OverdueSweepSchedule)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	sweeper.Stop()
	log.Println("Server exited")
}

// setupRouter builds the engine with every route. auth guards everything under /api/v1 except health.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		api := v1.Group("", auth)
		if cfg.Auth0RequiredScope != "" {
			api.Use(middleware.RequireScope(cfg.Auth0RequiredScope))
		}

		// Database status endpoint
		api.GET("/database/status", databaseStatus)

		api.GET("/uploads/:filename", controllers.GetUploadedFile)

		users := api.Group("/users")
		{
			users.GET("", controllers.ListUsers)
			users.POST("", controllers.CreateUser)
			users.GET("/me", controllers.GetMe)
			users.POST("/me", controllers.RegisterMe)
			users.GET("/:id", controllers.GetUser)
			users.PUT("/:id", controllers.UpdateUser)
			users.PATCH("/:id", controllers.UpdateUser)
			users.DELETE("/:id", controllers.DeleteUser)
			users.GET("/:id/profile", controllers.GetUserProfile)
			users.GET("/:id/statistics", controllers.GetUserStatistics)
		}

		properties := api.Group("/properties")
		{
			properties.GET("", controllers.ListProperties)
			properties.POST("", controllers.CreateProperty)
			properties.GET("/:property_id", controllers.GetProperty)
			properties.PUT("/:property_id", controllers.UpdateProperty)
			properties.PATCH("/:property_id", controllers.UpdateProperty)
			properties.DELETE("/:property_id", controllers.DeleteProperty)
			properties.GET("/:property_id/statistics", controllers.GetPropertyStatistics)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", controllers.ListRooms)
			rooms.POST("", controllers.CreateRoom)
			rooms.GET("/:room_id", controllers.GetRoom)
			rooms.PUT("/:room_id", controllers.UpdateRoom)
			rooms.PATCH("/:room_id", controllers.UpdateRoom)
			rooms.DELETE("/:room_id", controllers.DeleteRoom)
			rooms.GET("/:room_id/statistics", controllers.GetRoomStatistics)
		}

		topics := api.Group("/topics")
		{
			topics.GET("", controllers.ListTopics)
			topics.POST("", controllers.CreateTopic)
			topics.GET("/:id", controllers.GetTopic)
			topics.PUT("/:id", controllers.UpdateTopic)
			topics.PATCH("/:id", controllers.UpdateTopic)
			topics.DELETE("/:id", controllers.DeleteTopic)
		}

		machines := api.Group("/machines")
		{
			machines.GET("", controllers.ListMachines)
			machines.POST("", controllers.CreateMachine)
			machines.GET("/:machine_id", controllers.GetMachine)
			machines.PUT("/:machine_id", controllers.UpdateMachine)
			machines.PATCH("/:machine_id", controllers.UpdateMachine)
			machines.DELETE("/:machine_id", controllers.DeleteMachine)
		}

		pm := api.Group("/preventive-maintenance")
		{
			pm.GET("", controllers.ListMaintenance)
			pm.POST("", controllers.CreateMaintenance)
			pm.GET("/statistics", controllers.GetMaintenanceStatistics)
			pm.GET("/:pm_id", controllers.GetMaintenance)
			pm.PUT("/:pm_id", controllers.UpdateMaintenance)
			pm.PATCH("/:pm_id", controllers.UpdateMaintenance)
			pm.DELETE("/:pm_id", controllers.DeleteMaintenance)
			pm.POST("/:pm_id/complete", controllers.CompleteMaintenance)
			pm.POST("/:pm_id/images", controllers.UploadMaintenanceImages)
		}

		jobs := api.Group("/jobs")
		{
			jobs.GET("", controllers.ListJobs)
			jobs.POST("", controllers.CreateJob)
			jobs.GET("/:job_id", controllers.GetJob)
			jobs.PUT("/:job_id", controllers.UpdateJob)
			jobs.PATCH("/:job_id", controllers.UpdateJob)
			jobs.DELETE("/:job_id", controllers.DeleteJob)
			jobs.POST("/:job_id/assign", controllers.AssignJob)
			jobs.POST("/:job_id/complete", controllers.CompleteJob)
			jobs.POST("/:job_id/attachments", controllers.AddJobAttachment)
			jobs.POST("/:job_id/attachments/upload", controllers.UploadJobAttachment)
			jobs.PUT("/:job_id/checklist", controllers.ReplaceJobChecklist)
			jobs.PATCH("/:job_id/checklist/:item_id", controllers.UpdateJobChecklistItem)
			jobs.GET("/:job_id/history", controllers.GetJobHistory)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Maintenance API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
