package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authguard/authguard/internal/config"
	"github.com/authguard/authguard/internal/database"
	"github.com/authguard/authguard/internal/handler"
	"github.com/authguard/authguard/internal/interfaces"
	"github.com/authguard/authguard/internal/lockout"
	"github.com/authguard/authguard/internal/middleware"
	"github.com/authguard/authguard/internal/password"
	"github.com/authguard/authguard/internal/repository"
	"github.com/authguard/authguard/internal/service"
	"github.com/authguard/authguard/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Select the credential store: Postgres when configured, memory otherwise
	var store interfaces.CredentialStore
	if cfg.DbURL != "" {
		db, err := database.New(cfg.DbURL)
		if err != nil {
			log.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
		}
		defer db.Close()
		store = repository.NewPostgresCredentialStore(db)
		log.Println("Using Postgres credential store")
	} else {
		store = repository.NewMemoryCredentialStore()
		log.Println("Using in-memory credential store")
	}

	tracker := lockout.NewTracker(cfg.MaxLoginAttempts, cfg.RateLimitWindow, cfg.LockoutDuration)
	policy := password.Policy{
		MinLength:        cfg.MinPasswordLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireDigit:     cfg.RequireDigit,
		RequireSpecial:   cfg.RequireSpecial,
	}

	authService := service.NewAuthService(store, tracker, session.NewStore(), policy, cfg.JwtSecret)
	authHandler := handler.NewAuthHandler(authService)

	// Create router with middleware
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RateLimiter())

	r.Get("/", authHandler.Index)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/security-status", authHandler.SecurityStatus)

	// Credential routes with strict rate limiting
	r.Group(func(r chi.Router) {
		r.Use(middleware.StrictRateLimiter())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authService))
		r.Post("/logout", authHandler.Logout)
		r.Get("/profile", authHandler.Profile)
	})

	// Create server with timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s (max attempts: %d, window: %s, lockout: %s)",
			cfg.Port, cfg.MaxLoginAttempts, cfg.RateLimitWindow, cfg.LockoutDuration)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(fmt.Sprintf("Server failed to start: %v", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server is shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Println("Server exited properly")
}
