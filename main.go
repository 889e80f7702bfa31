package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskflow/handlers"
	"taskflow/utils"
)

func main() {
	// Load environment variables
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, continuing with environment as-is")
		}
	}
	log.Println("environment:", os.Getenv("APP_ENV"))

	// Initialize the database connection pool
	dbPool, err := utils.OpenDB(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := utils.EnsureSchema(dbPool); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	tokens := utils.NewTokenManager(secret, 24*time.Hour)

	auth := &handlers.AuthHandler{
		Users:  utils.NewUserStore(dbPool),
		Tokens: tokens,
	}

	// Login throttling is optional: without Redis the API still runs.
	if redisDSN := os.Getenv("REDIS_URL"); redisDSN != "" {
		redisPool, err := utils.OpenRedisPool(redisDSN)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisPool.Close()
		auth.Limiter = utils.NewLoginLimiter(redisPool, 10, time.Minute)
	} else {
		log.Println("REDIS_URL not set, login throttling disabled")
	}

	tasks := &handlers.TaskHandler{Tasks: utils.NewTaskStore(dbPool)}

	// Set up the HTTP server and handlers
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /auth/register", auth.Register)
	mux.HandleFunc("POST /auth/login", auth.Login)
	mux.HandleFunc("GET /auth/verify", auth.RequireAuth(auth.Verify))

	mux.HandleFunc("GET /tasks", auth.RequireAuth(tasks.List))
	mux.HandleFunc("POST /tasks", auth.RequireAuth(tasks.Create))
	mux.HandleFunc("GET /tasks/{id}", auth.RequireAuth(tasks.Get))
	mux.HandleFunc("PUT /tasks/{id}", auth.RequireAuth(tasks.Update))
	mux.HandleFunc("DELETE /tasks/{id}", auth.RequireAuth(tasks.Delete))
	mux.HandleFunc("PATCH /tasks/{id}/toggle", auth.RequireAuth(tasks.Toggle))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pending-task reminder digests
	if apiKey := os.Getenv("SENDGRID_API_KEY"); apiKey != "" {
		reminder := utils.NewReminderService(dbPool, utils.NewSendGridSender(apiKey), 20*time.Minute)
		go reminder.Run(ctx)
	} else {
		log.Println("SENDGRID_API_KEY not set, reminder emails disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		log.Println("Starting server on :" + port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Shutdown error:", err)
	}
}
