package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	S3BucketName       string
	S3UseSSL           string
	S3PublicBaseURL    string

	// RabbitMQ
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	// Photo drafts
	DraftMaxPhotos         int
	DraftMaxPhotoBytes     int64
	DraftTTL               time.Duration
	DraftUploadParallelism int
	DraftPreviewCacheSize  int
	DraftSessionCacheSize  int
	ListingMinPhotos       int
	ConverterBinary        string

	// API docs written by swag init
	SwaggerSpecPath string
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "sublets"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "listing-photos"),
		S3UseSSL:           getEnv("S3_USE_SSL", "true"),
		S3PublicBaseURL:    getEnv("S3_PUBLIC_BASE_URL", ""),

		RabbitMQHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		DraftMaxPhotos:         getEnvInt("DRAFT_MAX_PHOTOS", 10),
		DraftMaxPhotoBytes:     int64(getEnvInt("DRAFT_MAX_PHOTO_BYTES", 5*1024*1024)),
		DraftTTL:               getEnvDuration("DRAFT_TTL", 7*24*time.Hour),
		DraftUploadParallelism: getEnvInt("DRAFT_UPLOAD_PARALLELISM", 4),
		DraftPreviewCacheSize:  getEnvInt("DRAFT_PREVIEW_CACHE_SIZE", 512),
		DraftSessionCacheSize:  getEnvInt("DRAFT_SESSION_CACHE_SIZE", 1024),
		ListingMinPhotos:       getEnvInt("LISTING_MIN_PHOTOS", 1),
		ConverterBinary:        getEnv("CONVERTER_BINARY", ""),

		SwaggerSpecPath: getEnv("SWAGGER_SPEC_PATH", "docs/swagger.json"),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
