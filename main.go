// Command userdir is the entry point of the user directory service.
// It loads configuration, connects to PostgreSQL, optionally runs schema
// migrations, starts the background health monitor, wires the services and
// handlers together, mounts the HTTP routes, and runs the server until a
// shutdown signal arrives.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/user/userdir-go/apperror"
	"github.com/user/userdir-go/auth"
	"github.com/user/userdir-go/background"
	"github.com/user/userdir-go/config"
	"github.com/user/userdir-go/db"
	"github.com/user/userdir-go/health"
	"github.com/user/userdir-go/users"
)

func main() {
	// .env is a development convenience; in production the variables are set
	// directly, so a missing file is only worth a warning.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.EnableExtensions(pool); err != nil {
		log.Fatalf("Failed to enable extensions: %v", err)
	}

	// Migrations are opt-in: with no MIGRATIONS_PATH the schema is assumed
	// to pre-exist and is left untouched.
	if cfg.Database.MigrationsPath != "" {
		if err := db.RunMigrations(cfg.Database, cfg.Database.MigrationsPath); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Background database health monitor; the stop channel is closed during
	// shutdown to drain it.
	monitorStopChan := make(chan struct{})
	monitor := background.StartMonitor(pool, background.DefaultProbeInterval, monitorStopChan)
	log.Println("Background health monitor started.")

	// Manual dependency injection: services get the store and config,
	// handlers get the services.
	store := db.NewStore(pool)

	authService := auth.NewAuthService(store, *cfg.Auth)
	authHandlers := auth.NewHandlers(authService)

	userService := users.NewUserService(store, cfg.Users)
	userHandlers := users.NewUserHandlers(userService)

	healthHandler := health.NewHandler(monitor)

	r := chi.NewRouter()

	// Global middleware, registered before any routes (chi requires it).
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic-to-apperror middleware: a panicking handler still produces the
	// standard generic 500 body instead of an empty response.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	// Liveness probes.
	r.Get("/", healthHandler.HandleLiveness())
	r.Get("/health", healthHandler.HandleLiveness())

	// Auth routes.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.HandleRegister())
		r.Post("/login", authHandlers.HandleLogin())
		r.Post("/refresh", authHandlers.HandleRefreshToken())
	})

	// User directory: public listing plus JWT-protected profile routes.
	r.Route("/users", func(r chi.Router) {
		userHandlers.RegisterRoutes(r, auth.JWTMiddleware(cfg.Auth))
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The server runs in its own goroutine so main can wait for signals.
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the monitor first and wait for its pipeline to drain.
	log.Println("Signaling health monitor to stop...")
	close(monitorStopChan)
	select {
	case <-monitor.Done():
	case <-ctx.Done():
		log.Println("Timed out waiting for health monitor to stop")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware, kept here
// so the middleware closure stays self-contained.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
