package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment

	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	MigrationsDir string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Token configuration
	JWTSecret string
	TokenTTL  time.Duration

	// Media storage
	StorageBackend string
	MediaRoot      string
	MediaURL       string
	S3BucketName   string
	S3Endpoint     string
	AWSRegion      string

	// API behaviour
	PageSize        int
	MaxPageSize     int
	RecipeRateLimit int
	CORSOrigins     []string
	Limits          RecipeLimits

	// Observability
	LogLevel     string
	OTelEndpoint string
	SentryDSN    string
}

// RecipeLimits bounds the numeric recipe fields.
type RecipeLimits struct {
	MinCookingTime      int
	MaxCookingTime      int
	MinIngredientAmount int
	MaxIngredientAmount int
}

// DefaultRecipeLimits returns the bounds used when nothing is configured.
func DefaultRecipeLimits() RecipeLimits {
	return RecipeLimits{
		MinCookingTime:      1,
		MaxCookingTime:      32000,
		MinIngredientAmount: 1,
		MaxIngredientAmount: 32000,
	}
}

const devJWTSecret = "foodgram-dev-secret"

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Env:             env,
		ServerPort:      v.GetString("SERVER_PORT"),
		ServerHost:      v.GetString("SERVER_HOST"),
		DBDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSL_MODE"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		MigrationsDir:   v.GetString("MIGRATIONS_DIR"),
		RedisHost:       v.GetString("REDIS_HOST"),
		RedisPort:       v.GetString("REDIS_PORT"),
		RedisDB:         v.GetInt("REDIS_DB"),
		TokenTTL:        v.GetDuration("TOKEN_TTL"),
		StorageBackend:  strings.ToLower(v.GetString("STORAGE_BACKEND")),
		MediaRoot:       v.GetString("MEDIA_ROOT"),
		MediaURL:        v.GetString("MEDIA_URL"),
		S3BucketName:    v.GetString("S3_BUCKET_NAME"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		AWSRegion:       v.GetString("AWS_REGION"),
		PageSize:        v.GetInt("PAGE_SIZE"),
		MaxPageSize:     v.GetInt("MAX_PAGE_SIZE"),
		RecipeRateLimit: v.GetInt("RECIPE_RATE_LIMIT"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		Limits: RecipeLimits{
			MinCookingTime:      v.GetInt("MIN_COOKING_TIME"),
			MaxCookingTime:      v.GetInt("MAX_COOKING_TIME"),
			MinIngredientAmount: v.GetInt("MIN_INGREDIENT_AMOUNT"),
			MaxIngredientAmount: v.GetInt("MAX_INGREDIENT_AMOUNT"),
		},
		LogLevel:     v.GetString("LOG_LEVEL"),
		OTelEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SentryDSN:    v.GetString("SENTRY_DSN"),
	}

	// Sensitive values: CI takes them from the environment only, every other
	// environment falls back to Docker secrets.
	cfg.DBUser = sensitive(v, env, "DB_USER", "db_user")
	cfg.DBPassword = sensitive(v, env, "DB_PASSWORD", "db_password")
	cfg.RedisPassword = sensitive(v, env, "REDIS_PASSWORD", "redis_password")
	cfg.RedisURL = sensitive(v, env, "REDIS_URL", "redis_url")
	cfg.JWTSecret = sensitive(v, env, "JWT_SECRET", "jwt_secret")
	if cfg.JWTSecret == "" && (env == Development || env == Test) {
		cfg.JWTSecret = devJWTSecret
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "foodgram")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("SQLITE_PATH", "foodgram.db")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("MEDIA_ROOT", "media")
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("S3_BUCKET_NAME", "foodgram-media")
	v.SetDefault("PAGE_SIZE", 6)
	v.SetDefault("MAX_PAGE_SIZE", 100)
	v.SetDefault("RECIPE_RATE_LIMIT", 50)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")

	limits := DefaultRecipeLimits()
	v.SetDefault("MIN_COOKING_TIME", limits.MinCookingTime)
	v.SetDefault("MAX_COOKING_TIME", limits.MaxCookingTime)
	v.SetDefault("MIN_INGREDIENT_AMOUNT", limits.MinIngredientAmount)
	v.SetDefault("MAX_INGREDIENT_AMOUNT", limits.MaxIngredientAmount)
}

// sensitive resolves a secret value from the environment, then from the secrets directory.
func sensitive(v *viper.Viper, env Environment, envKey, secretName string) string {
	if value := strings.TrimSpace(v.GetString(envKey)); value != "" {
		return value
	}
	if env == CI {
		return ""
	}
	return readSecret(secretName)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}
