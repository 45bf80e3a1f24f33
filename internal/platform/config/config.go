package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// DatabaseURL selects the postgres store; empty keeps everything in memory.
	DatabaseURL string
	// RedisURL enables the shared token revocation list; empty keeps it local.
	RedisURL string

	// Seed admin credentials guarantee a usable account on first boot.
	SeedAdminUsername string
	SeedAdminPassword string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CLAVE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	seedUser := os.Getenv("CLAVE_SEED_ADMIN_USERNAME")
	if seedUser == "" {
		seedUser = "admin"
	}
	seedPass := os.Getenv("CLAVE_SEED_ADMIN_PASSWORD")
	if seedPass == "" {
		seedPass = "change-me-on-first-login"
	}

	return Server{
		Addr:              addr,
		JWTSigningKey:     jwtSigningKey,
		DatabaseURL:       os.Getenv("CLAVE_DATABASE_URL"),
		RedisURL:          os.Getenv("CLAVE_REDIS_URL"),
		SeedAdminUsername: seedUser,
		SeedAdminPassword: seedPass,
		ShutdownTimeout:   10 * time.Second,
	}
}
