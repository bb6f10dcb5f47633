package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	BackendBaseURL string
	BackendTimeout time.Duration
	RedisAddress   string
	RedisPassword  string
	DatabaseURL    string
	SessionTTL     time.Duration
	LoginFlowTTL   time.Duration
	AllowedOrigins []string
}

func Load() *Config {
	backendURL := os.Getenv("SCHOOL_API_BASE_URL")
	if backendURL == "" {
		panic("SCHOOL_API_BASE_URL environment variable is required")
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = splitAndTrim(raw)
	}

	return &Config{
		Port:           port,
		BackendBaseURL: backendURL,
		BackendTimeout: durationEnv("SCHOOL_API_TIMEOUT_SECONDS", 15*time.Second),
		RedisAddress:   redisAddr,
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:    dbURL,
		SessionTTL:     durationEnv("SESSION_TTL_SECONDS", 24*time.Hour),
		LoginFlowTTL:   durationEnv("LOGIN_FLOW_TTL_SECONDS", 10*time.Minute),
		AllowedOrigins: origins,
	}
}

func durationEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
