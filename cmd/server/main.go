package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lumen/credits/docs"
	"github.com/lumen/credits/internal/config"
	"github.com/lumen/credits/internal/database"
	"github.com/lumen/credits/internal/handlers"
	mW "github.com/lumen/credits/internal/middleware"
	"github.com/lumen/credits/internal/services"
	"github.com/lumen/credits/internal/store"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Credits Ledger API
// @version 1.0
// @description Daily allowance, access-day bank and wallet credit ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	config.BindEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}
	viper.SetDefault("server.port", "8080")

	docs.SwaggerInfo.Host = "localhost:" + viper.GetString("server.port")

	ctx := context.Background()
	creditsConfig := config.LoadCreditsConfig()

	accounts, closeStore, err := database.OpenAccountStore(ctx, database.GetConfig(), store.RetryPolicy{
		MaxAttempts:     creditsConfig.MaxAttempts,
		InitialInterval: creditsConfig.RetryInitial,
		MaxInterval:     creditsConfig.RetryMax,
	})
	if err != nil {
		log.Fatalf("Failed to initialize account store: %v", err)
	}
	defer closeStore()

	redisClient := database.InitRedis(ctx)
	var events services.EventPublisher
	if redisClient != nil {
		defer redisClient.Close()
		events = services.NewRedisPublisher(redisClient, creditsConfig.EventsQueue)
	}

	creditService := services.NewCreditService(accounts, creditsConfig, events)
	limiter := services.NewRateLimiter(redisClient, creditsConfig.RateLimitMax, creditsConfig.RateLimitWindow)
	creditHandler := handlers.NewCreditHandler(creditService, limiter)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.AuthMiddleware)

		r.Post("/admin/accounts", creditHandler.ProvisionAccount)

		r.Route("/credits/{accountId}", func(r chi.Router) {
			r.Get("/", creditHandler.GetAccount)
			r.Get("/balance", creditHandler.GetBalance)
			r.Get("/logs", creditHandler.GetLogs)
			r.Post("/consume", creditHandler.Consume)
			r.Post("/replenish", creditHandler.Replenish)
			r.Post("/tools/{toolId}", creditHandler.ConsumeTool)
		})
	})

	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
