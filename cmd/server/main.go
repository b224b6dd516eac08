package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nota/internal/config"
	"nota/internal/handler"
	"nota/internal/middleware"
	"nota/internal/repository"
	"nota/internal/service"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := repository.Open(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	versionRepo := repository.NewNoteVersionRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	noteService := service.NewNoteService(noteRepo, versionRepo, cfg.Notes)

	authHandler := handler.NewAuthHandler(authService)
	noteHandler := handler.NewNoteHandler(noteService)
	publicHandler := handler.NewPublicHandler(noteService)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	session := api.PathPrefix("/session").Subrouter()
	session.Use(middleware.OptionalAuthMiddleware(cfg.JWT.Secret))
	session.HandleFunc("", authHandler.Session).Methods("GET", "OPTIONS")

	// Read-only note routes need authentication only.
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/notes", noteHandler.Fetch).Methods("GET", "OPTIONS")
	protected.HandleFunc("/notes/export", noteHandler.Export).Methods("GET", "OPTIONS")
	protected.HandleFunc("/notes/{id}/history", noteHandler.History).Methods("GET", "OPTIONS")

	// State-changing routes sit behind the CSRF guard as well.
	mutating := api.PathPrefix("").Subrouter()
	mutating.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	mutating.Use(middleware.CSRFMiddleware(cfg.JWT.Secret))

	mutating.HandleFunc("/notes", noteHandler.Create).Methods("POST", "OPTIONS")
	mutating.HandleFunc("/notes/import", noteHandler.Import).Methods("POST", "OPTIONS")
	mutating.HandleFunc("/notes/{id}", noteHandler.Update).Methods("PUT", "OPTIONS")
	mutating.HandleFunc("/notes/{id}", noteHandler.UpdateMeta).Methods("PATCH", "OPTIONS")
	mutating.HandleFunc("/notes/{id}", noteHandler.Delete).Methods("DELETE", "OPTIONS")
	mutating.HandleFunc("/notes/{id}/share", noteHandler.TogglePublic).Methods("POST", "OPTIONS")
	mutating.HandleFunc("/notes/{id}/restore", noteHandler.Restore).Methods("POST", "OPTIONS")

	// Public share links need no authentication at all.
	r.HandleFunc("/public/{token}", publicHandler.Get).Methods("GET")

	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Nota server on %s (env: %s)", addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"nota"}`))
}
