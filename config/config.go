package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// MongoDB connection candidates, tried in order. MongoURL is the
	// primary (Atlas-style) endpoint, MongoLocalURL the fallback.
	MongoURL        string
	MongoLocalURL   string
	DBName          string
	MongoTimeout    time.Duration // primary candidate connect/select/socket timeout
	FallbackTimeout time.Duration // fallback candidate timeout

	// JWT
	JWTSecret   string
	TokenExpiry time.Duration

	// MinIO object storage for audio and cover blobs
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	// Redis cache (optional; the service runs without it)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP server
	ServerPort string

	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvSeconds gets an environment variable as a second count or returns a default.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		MongoURL:        os.Getenv("MONGO_URL"), // remote credentials get no hardcoded default
		MongoLocalURL:   getEnv("MONGO_LOCAL_URL", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "musicstream"),
		MongoTimeout:    getEnvSeconds("MONGO_TIMEOUT_SECONDS", 15*time.Second),
		FallbackTimeout: getEnvSeconds("MONGO_FALLBACK_TIMEOUT_SECONDS", 5*time.Second),

		JWTSecret:   getEnv("JWT_SECRET", "musicstream-dev-secret"),
		TokenExpiry: getEnvSeconds("TOKEN_EXPIRY_SECONDS", 24*time.Hour),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "musicstream"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ServerPort: getEnv("SERVER_PORT", "8080"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
