package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the ingestion service.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	DatabasePath string
	LogLevel     string

	// Statement file locations
	StagingDir string
	ArchiveDir string

	// Per-file processing ceilings
	MaxFileSizeBytes int64
	MaxRowsPerFile   int
	FileTimeout      time.Duration
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from a subdir)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	Cfg = &AppConfig{
		DatabasePath: getEnv("DATABASE_PATH", "./aibookkeeping.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		StagingDir: getEnv("STAGING_DIR", "./data/staging"),
		ArchiveDir: getEnv("ARCHIVE_DIR", "./data/archive"),

		MaxFileSizeBytes: getEnvAsInt64("MAX_FILE_SIZE_BYTES", 10*1024*1024),
		MaxRowsPerFile:   getEnvAsInt("MAX_ROWS_PER_FILE", 50000),
		FileTimeout:      getEnvAsDuration("FILE_TIMEOUT", 30*time.Second),
	}

	log.Printf("Configuration loaded: LogLevel=%s, DBPath=%s, StagingDir=%s, ArchiveDir=%s",
		Cfg.LogLevel, Cfg.DatabasePath, Cfg.StagingDir, Cfg.ArchiveDir)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a fallback.
func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
