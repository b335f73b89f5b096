package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "must not be empty")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" || cfg.DBName == "" {
			add("DB_HOST/DB_NAME", "required for the postgres driver")
		}
		if cfg.Env == CI && cfg.DBPassword == "" {
			add("DB_PASSWORD", "environment variable is required in CI environment")
		}
		if cfg.Env == Production && cfg.DBPassword == "" {
			add("db_password", "secret is required")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "required for the sqlite driver")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "token signing secret is required")
	} else if cfg.Env == Production && cfg.JWTSecret == devJWTSecret {
		add("JWT_SECRET", "development secret must not be used in production")
	}
	if cfg.TokenTTL <= 0 {
		add("TOKEN_TTL", "must be positive")
	}

	switch cfg.StorageBackend {
	case "local":
		if cfg.MediaRoot == "" {
			add("MEDIA_ROOT", "required for local storage")
		}
	case "s3":
		if cfg.S3BucketName == "" {
			add("S3_BUCKET_NAME", "required for s3 storage")
		}
	default:
		add("STORAGE_BACKEND", fmt.Sprintf("unsupported backend %q", cfg.StorageBackend))
	}

	if cfg.PageSize < 1 {
		add("PAGE_SIZE", "must be at least 1")
	}
	if cfg.MaxPageSize < cfg.PageSize {
		add("MAX_PAGE_SIZE", "must not be smaller than PAGE_SIZE")
	}
	if cfg.RecipeRateLimit < 1 {
		add("RECIPE_RATE_LIMIT", "must be at least 1")
	}
	if len(cfg.CORSOrigins) == 0 {
		add("CORS_ORIGINS", "at least one origin is required")
	}

	l := cfg.Limits
	if l.MinCookingTime < 1 || l.MaxCookingTime < l.MinCookingTime {
		add("MIN_COOKING_TIME/MAX_COOKING_TIME", "invalid range")
	}
	if l.MinIngredientAmount < 1 || l.MaxIngredientAmount < l.MinIngredientAmount {
		add("MIN_INGREDIENT_AMOUNT/MAX_INGREDIENT_AMOUNT", "invalid range")
	}

	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
}
