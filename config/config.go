package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	LogLevel           string
	CORSAllowedOrigins []string

	AWSRegion          string
	AWSS3Bucket        string
	AWSS3PublicURL     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	UploadDir          string
	PublicBaseURL      string

	AlgoliaAppID  string
	AlgoliaAPIKey string

	RedisURL string
}

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// In production variables are set directly on the host
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSS3PublicURL:     getEnv("AWS_S3_PUBLIC_URL", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		AlgoliaAppID:       getEnv("ALGOLIA_APP_ID", ""),
		AlgoliaAPIKey:      getEnv("ALGOLIA_API_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
	}

	config.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:"+config.Port)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && !c.HasAlgolia() {
		return fmt.Errorf("ALGOLIA_APP_ID and ALGOLIA_API_KEY are required in production")
	}
	if (c.AlgoliaAppID == "") != (c.AlgoliaAPIKey == "") {
		return fmt.Errorf("ALGOLIA_APP_ID and ALGOLIA_API_KEY must be set together")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// HasAlgolia reports whether a hosted search index is configured
func (c *Config) HasAlgolia() bool {
	return c.AlgoliaAppID != "" && c.AlgoliaAPIKey != ""
}

// HasS3 reports whether uploads go to S3 rather than the local upload directory
func (c *Config) HasS3() bool {
	return c.AWSS3Bucket != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
