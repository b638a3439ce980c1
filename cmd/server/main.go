package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/auth"
	"github.com/hnakamura/project-management-api/internal/config"
	"github.com/hnakamura/project-management-api/internal/database"
	"github.com/hnakamura/project-management-api/internal/handlers"
	"github.com/hnakamura/project-management-api/internal/middleware"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/hnakamura/project-management-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	storyRepo := repository.NewStoryRepository(db)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	projectService := services.NewProjectService(projectRepo, taskRepo, userRepo)
	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo)
	commentService := services.NewCommentService(commentRepo, taskService)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	storyService := services.NewStoryService(projectRepo, storyRepo, taskRepo, aiService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService, tokens)
	userHandler := handlers.NewUserHandler(userService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService, commentService)
	aiHandler := handlers.NewAIHandler(storyService)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	requireAuth := middleware.RequireAuth(tokens, authService)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public except /me and /password)
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
			authRoutes.PUT("/password", requireAuth, authHandler.ChangePassword)
		}

		// User administration routes (protected, admin checks in service)
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PATCH("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.GET("/:id/members", projectHandler.ListMembers)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:user_id", projectHandler.RemoveMember)
			projects.GET("/:id/task-counts", taskHandler.StatusCounts)
			projects.POST("/:id/stories/generate", aiHandler.GenerateStories)
			projects.GET("/:id/stories", aiHandler.ListStories)
			projects.POST("/:id/tasks/from-stories", aiHandler.GenerateTasksFromStories)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/my", taskHandler.MyTasks)
			tasks.GET("/overdue", taskHandler.OverdueTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.GET("/:id/comments", taskHandler.ListComments)
			tasks.POST("/:id/comments", taskHandler.AddComment)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
