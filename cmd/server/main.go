package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/scalecode-solutions/famboard/internal/api"
	"github.com/scalecode-solutions/famboard/internal/auth"
	"github.com/scalecode-solutions/famboard/internal/db"
	"github.com/scalecode-solutions/famboard/internal/imaging"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration from environment
	port := getEnv("PORT", "8080")
	databaseURL := getEnv("DATABASE_URL", "postgres://famboard:@localhost:5432/famboard?sslmode=disable")
	sessionSecret := getEnv("SESSION_SECRET", "")
	adminPasswordHash := getEnv("ADMIN_PASSWORD_HASH", "")
	uploadPath := getEnv("UPLOAD_PATH", "./data/photos")
	corsOrigins := getEnv("CORS_ORIGINS", "*")

	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable is required")
	}
	if adminPasswordHash == "" {
		log.Fatal("ADMIN_PASSWORD_HASH environment variable is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	database, err := db.New(databaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	authenticator := auth.New([]byte(sessionSecret), []byte(adminPasswordHash))
	photos := imaging.NewProcessor(uploadPath)

	// Create API handler
	apiHandler := api.New(database, authenticator, photos, logger)

	// Set up router
	r := mux.NewRouter()
	r.Use(apiHandler.LoggingMiddleware)

	// Health check
	r.HandleFunc("/health", apiHandler.Health).Methods("GET")

	// Admin login stands outside the device/session middlewares.
	r.HandleFunc("/api/admin/login", apiHandler.Login).Methods("POST")

	// Public routes: every request gets a device identity.
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(apiHandler.DeviceMiddleware)

	apiRouter.HandleFunc("/board", apiHandler.GetBoard).Methods("GET")
	apiRouter.HandleFunc("/plans/{id}", apiHandler.GetPlan).Methods("GET")
	apiRouter.HandleFunc("/subtasks/{id}/submissions", apiHandler.CreateSubmission).Methods("POST")
	apiRouter.HandleFunc("/review/queue", apiHandler.GetReviewQueue).Methods("GET")
	apiRouter.HandleFunc("/review/subtasks/{id}/approve", apiHandler.ApproveSubtask).Methods("POST")
	apiRouter.HandleFunc("/review/subtasks/{id}/deny", apiHandler.DenySubtask).Methods("POST")
	apiRouter.HandleFunc("/devices/link", apiHandler.LinkDevice).Methods("POST")
	apiRouter.HandleFunc("/devices/me", apiHandler.GetMyDevice).Methods("GET")

	// Admin routes require a session token on top of the device identity.
	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(apiHandler.AdminMiddleware)

	adminRouter.HandleFunc("/import", apiHandler.ImportPlan).Methods("POST")
	adminRouter.HandleFunc("/devices", apiHandler.ListDevices).Methods("GET")
	adminRouter.HandleFunc("/devices/{id}", apiHandler.UpdateDevice).Methods("PUT")
	adminRouter.HandleFunc("/activity", apiHandler.ListActivity).Methods("GET")
	adminRouter.HandleFunc("/users", apiHandler.CreateUser).Methods("POST")
	adminRouter.HandleFunc("/users", apiHandler.ListUsers).Methods("GET")

	// Set up CORS
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{corsOrigins}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)

	// Create server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      corsHandler(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("famboard server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
