package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionSecret   string
	LogLevel        string
	CORSOrigins     []string
	MediaBackend    string // "local" or "s3"
	MediaDir        string
	MediaBaseURL    string
	S3Region        string
	S3Bucket        string
	Debug           bool
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=socialwall port=5432 sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SessionSecret:   getEnv("SESSION_SECRET", "secret_key_change_me"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		MediaBackend:    getEnv("MEDIA_BACKEND", "local"),
		MediaDir:        getEnv("MEDIA_DIR", "./uploads"),
		MediaBaseURL:    getEnv("MEDIA_BASE_URL", "/uploads"),
		S3Region:        getEnv("S3_REGION", "us-west-2"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		Debug:           getEnvAsBool("DEBUG", true),
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.Debug {
			return errors.New("JWT_SECRET must be set in release mode")
		}
		log.Println("JWT_SECRET not set, using an insecure development secret")
		c.JWTSecret = "dev_jwt_secret_change_me"
	}
	if c.MediaBackend == "s3" && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required when MEDIA_BACKEND=s3")
	}
	if c.MediaBackend != "local" && c.MediaBackend != "s3" {
		return errors.New("MEDIA_BACKEND must be local or s3")
	}
	return nil
}

// GinMode maps Debug onto a gin mode.
func (c *Config) GinMode() string {
	if c.Debug {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
