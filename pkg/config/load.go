package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the optional .env files and processes the environment into App.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	// If no specific paths provided, try default .env
	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	// Try each provided path until we find a valid one
	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := findEnvFile(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}

		// Successfully loaded a file, proceed with config loading
		return loadFromEnv()
	}

	// No valid environment files found, try default .env as fallback
	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	// Set default values if not set
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	logger.Info("App config loaded",
		"env", cfg.Env,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"db_driver", cfg.DB.Driver,
		"db", maskValue(cfg.DB.Url),
		"eventbus", cfg.EventBus.Driver,
		"progress_cache", cfg.ProgressCache.Driver,
		"payment_provider", cfg.PaymentProvider.Driver,
		"stripe_api_key", maskValue(cfg.PaymentProvider.Stripe.ApiKey),
		"reconciliation_schedule", cfg.Reconciliation.Schedule,
		"reconciliation_enabled", cfg.Reconciliation.Enabled,
	)
	return &cfg, nil
}

func (c *App) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DB.Driver)
	}
	switch c.EventBus.Driver {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("unsupported EVENTBUS_DRIVER %q", c.EventBus.Driver)
	}
	switch c.ProgressCache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported PROGRESS_CACHE_DRIVER %q", c.ProgressCache.Driver)
	}
	switch c.PaymentProvider.Driver {
	case "simulated":
	case "stripe":
		if c.PaymentProvider.Stripe.ApiKey == "" {
			return errors.New("PAYMENT_PROVIDER_STRIPE_API_KEY is required for the stripe driver")
		}
		if c.PaymentProvider.Stripe.SigningSecret == "" {
			return errors.New("PAYMENT_PROVIDER_STRIPE_SIGNING_SECRET is required for the stripe driver")
		}
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER_DRIVER %q", c.PaymentProvider.Driver)
	}
	if c.Reconciliation.Concurrency < 1 {
		c.Reconciliation.Concurrency = 1
	}
	return nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
