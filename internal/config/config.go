package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Server struct {
		Port    string
		GinMode string
	}

	Verification struct {
		BaseURL  string
		LinkTTL  time.Duration
		CodeSize int
	}

	Jobs struct {
		MeetingSweepInterval    time.Duration
		AttendanceSweepInterval time.Duration
		WarningWindow           time.Duration
	}

	Admin struct {
		Username     string
		PasswordHash string
		JWTSecret    string
		TokenTTL     time.Duration
	}

	Documents struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "agm")
	config.DB.Password = getEnv("DB_PASSWORD", "agm_password")
	config.DB.Name = getEnv("DB_NAME", "agm_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")

	config.Verification.BaseURL = getEnv("VERIFICATION_BASE_URL", "http://localhost:3000")
	config.Verification.LinkTTL = getEnvAsDuration("VERIFICATION_LINK_TTL", 72*time.Hour)
	config.Verification.CodeSize = int(getEnvAsInt64("VERIFICATION_CODE_BYTES", 16))

	config.Jobs.MeetingSweepInterval = getEnvAsDuration("MEETING_SWEEP_INTERVAL", time.Minute)
	config.Jobs.AttendanceSweepInterval = getEnvAsDuration("ATTENDANCE_SWEEP_INTERVAL", time.Minute)
	config.Jobs.WarningWindow = getEnvAsDuration("ATTENDANCE_WARNING_WINDOW", 10*time.Minute)

	config.Admin.Username = getEnv("ADMIN_USERNAME", "admin")
	config.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", "")
	config.Admin.JWTSecret = getEnv("ADMIN_JWT_SECRET", "")
	config.Admin.TokenTTL = getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour)

	config.Documents.Endpoint = getEnv("DOCS_ENDPOINT", "localhost:9000")
	config.Documents.AccessKey = getEnv("DOCS_ACCESS_KEY", "")
	config.Documents.SecretKey = getEnv("DOCS_SECRET_KEY", "")
	config.Documents.Bucket = getEnv("DOCS_BUCKET", "meeting-documents")
	config.Documents.UseSSL = getEnv("DOCS_USE_SSL", "false") == "true"

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
