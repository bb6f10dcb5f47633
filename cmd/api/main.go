package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/backend"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/handler"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/middleware"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/repository"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/config"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/services"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("Authenticated with Redis successfully")

	schoolAPI := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)
	sessionStore := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	flowRepo := repository.NewRedisFlowRepository(redisClient, cfg.LoginFlowTTL)
	auditRepo := repository.NewPostgresAuditRepository(db)

	loginFlowService := services.NewLoginFlowService(schoolAPI, sessionStore, flowRepo, auditRepo)
	sessionService := services.NewSessionService(schoolAPI, sessionStore, auditRepo)

	authMiddleware := middleware.NewAuthMiddleware(sessionService)

	authHandler := handler.NewAuthHandler(loginFlowService, sessionService, authMiddleware)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.BackendBaseURL)

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/health/ready", healthHandler.Ready)
	mux.HandleFunc("/health/live", healthHandler.Live)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Login flow endpoints
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.HandleFunc("/auth/login/role", authHandler.ChooseRole)
	mux.HandleFunc("/auth/login/academic-year", authHandler.ChooseAcademicYear)
	mux.HandleFunc("/auth/login/cancel", authHandler.CancelLogin)

	// Session endpoints
	mux.Handle("/auth/session", authMiddleware.RequireSession(authHandler.Session))
	mux.Handle("/auth/me", authMiddleware.RequireSession(authHandler.Me))
	mux.Handle("/logout", authMiddleware.RequireSession(authHandler.Logout))

	routes := middleware.CORSMiddleware(cfg.AllowedOrigins)(mux)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, routes); err != nil {
		log.Fatalf("Could not start server: %s\n", err)
	}
}
