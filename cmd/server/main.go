package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"

	"github.com/mektebli/school-crm/internal/authz"
	"github.com/mektebli/school-crm/internal/config"
	"github.com/mektebli/school-crm/internal/constants"
	"github.com/mektebli/school-crm/internal/database"
	"github.com/mektebli/school-crm/internal/handlers"
	"github.com/mektebli/school-crm/internal/middleware"
	"github.com/mektebli/school-crm/internal/repository"
	"github.com/mektebli/school-crm/internal/services"
	"github.com/mektebli/school-crm/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Pick the file store: Backblaze B2 when configured, local disk otherwise
	var files storage.Storage
	if cfg.B2AccountID != "" && cfg.B2AppKey != "" && cfg.B2BucketName != "" {
		files, err = storage.NewB2Storage(context.Background(), cfg.B2AccountID, cfg.B2AppKey, cfg.B2BucketName)
		if err != nil {
			log.Fatalf("Failed to connect to B2: %v", err)
		}
		log.Printf("Using B2 bucket %s for attachments", cfg.B2BucketName)
	} else {
		files, err = storage.NewDiskStorage(cfg.StorageDir)
		if err != nil {
			log.Fatalf("Failed to create storage dir: %v", err)
		}
	}

	// Initialize repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Initialize the permission evaluator
	evaluator := authz.NewEvaluator(userRepo, taskRepo, cfg.RootUserIDs)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo, evaluator)
	groupService := services.NewGroupService(groupRepo, evaluator)
	taskService := services.NewTaskService(taskRepo, groupRepo, evaluator, files)
	reviewService := services.NewReviewService(reviewRepo, taskRepo, evaluator, files)
	reviewService.AddNotifier(services.LogNotifier{})
	chatService := services.NewChatService(chatRepo, evaluator)
	reportService := services.NewReportService(reviewRepo, evaluator)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupService)
	taskHandler := handlers.NewTaskHandler(taskService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	attachmentHandler := handlers.NewAttachmentHandler(reviewService)
	chatHandler := handlers.NewChatHandler(chatService)
	reportHandler := handlers.NewReportHandler(reportService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "School CRM API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("", userHandler.ListUsers)
			users.PUT("/:id/role", userHandler.SetRole)
		}

		// Group routes (protected)
		groups := api.Group("/groups")
		groups.Use(middleware.RequireAuth())
		{
			groups.POST("", groupHandler.CreateGroup)
			groups.GET("", groupHandler.ListGroups)
			groups.POST("/join", groupHandler.JoinGroup)
			groups.GET("/:id", groupHandler.GetGroup)
			groups.DELETE("/:id", groupHandler.DeleteGroup)
			groups.POST("/:id/regenerate-code", groupHandler.RegenerateInviteCode)
			groups.DELETE("/:id/members/:user_id", groupHandler.RemoveMember)
		}

		// Task routes (protected); :id routes resolve visibility first so
		// hidden tasks read as missing
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskVisibility(evaluator), taskHandler.GetTask)
			tasks.DELETE("/:id", middleware.RequireTaskVisibility(evaluator), taskHandler.DeleteTask)
			tasks.POST("/:id/assign", middleware.RequireTaskVisibility(evaluator), taskHandler.AssignTask)
			tasks.POST("/:id/unassign", middleware.RequireTaskVisibility(evaluator), taskHandler.UnassignTask)
			tasks.POST("/:id/assign-groups", middleware.RequireTaskVisibility(evaluator), taskHandler.AssignGroups)
			tasks.POST("/:id/attachments", middleware.RequireTaskVisibility(evaluator), taskHandler.AttachFile)
			tasks.POST("/:id/approve-all", middleware.RequireTaskVisibility(evaluator), reviewHandler.ApproveAllInTask)
		}

		// Review workflow routes (protected)
		assignees := api.Group("/assignees")
		assignees.Use(middleware.RequireAuth())
		{
			assignees.POST("/:id/submit", reviewHandler.SubmitForReview)
			assignees.POST("/:id/approve", reviewHandler.ApproveSubmission)
			assignees.POST("/:id/reject", reviewHandler.RejectSubmission)
		}
		api.POST("/reviews/bulk", middleware.RequireAuth(), reviewHandler.BulkReview)

		// Attachment download (protected)
		api.GET("/attachments/:id", middleware.RequireAuth(), attachmentHandler.Download)

		// Chat routes (protected)
		threads := api.Group("/threads")
		threads.Use(middleware.RequireAuth())
		{
			threads.POST("", chatHandler.CreateThread)
			threads.GET("", chatHandler.ListThreads)
			threads.DELETE("/:id", chatHandler.DeleteThread)
			threads.POST("/:id/messages", chatHandler.PostMessage)
			threads.GET("/:id/messages", chatHandler.ListMessages)
		}

		// Weekly review report (protected)
		api.GET("/reports/weekly", middleware.RequireAuth(), reportHandler.WeeklyReport)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
