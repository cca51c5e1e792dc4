// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
)

// Config holds the process-wide settings. Each field corresponds to an
// environment variable.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string
	DBPass       string // optional
	DBHost       string
	DBPort       string
	DBName       string
	JWTSecret    string // HS256 secret shared with the token issuer
	AccessTTLMin int    // lifetime of tokens minted by bookingctl
	QRSecret     string // signs check-in QR payloads, defaults to JWTSecret
}

// Load reads the required variables. Missing values stop the process.
// The database variables are only required for the mysql backend.
func Load(backend string) Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		DBPass:       os.Getenv("DB_PASS"),
	}
	cfg.QRSecret = envStr("QR_SECRET", cfg.JWTSecret)
	if backend == BackendMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
