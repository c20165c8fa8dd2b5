package initializer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/presale/infra"
	infra_cache "github.com/amirasaad/presale/infra/cache"
	infra_eventbus "github.com/amirasaad/presale/infra/eventbus"
	"github.com/amirasaad/presale/infra/provider/simulated"
	"github.com/amirasaad/presale/infra/provider/stripepayment"
	infra_repository "github.com/amirasaad/presale/infra/repository"
	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/pkg/cache"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/eventbus"
	"github.com/amirasaad/presale/pkg/handler/notification"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
)

// Closer releases the connections opened by InitializeDependencies.
type Closer func() error

// InitializeDependencies builds the logger, the store, the event bus, the
// payment adapter and the progress cache from cfg.
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	closeAll Closer,
	err error,
) {
	logger := SetupLogger(cfg.Log)
	return initializeDependencies(cfg, logger)
}

func initializeDependencies(cfg *config.App, logger *slog.Logger) (*app.Deps, Closer, error) {
	var closers []io.Closer
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i].Close())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*app.Deps, Closer, error) {
		_ = closeAll()
		return nil, nil, err
	}

	deps := &app.Deps{Logger: logger}

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, sqlDB)
	}
	deps.Store = infra_repository.New(db)

	bus, busCloser, err := initEventBus(cfg, logger)
	if err != nil {
		return fail(err)
	}
	if busCloser != nil {
		closers = append(closers, busCloser)
	}
	deps.EventBus = bus

	adapter, err := initPaymentAdapter(cfg.PaymentProvider, logger)
	if err != nil {
		return fail(err)
	}
	deps.Adapter = adapter

	progressCache, cacheCloser, err := initProgressCache(cfg, logger)
	if err != nil {
		return fail(err)
	}
	if cacheCloser != nil {
		closers = append(closers, cacheCloser)
	}
	deps.ProgressCache = progressCache
	deps.Notifier = notification.NewLogNotifier(logger)

	logger.Info("Dependencies initialized",
		"eventbus", cfg.EventBus.Driver,
		"payment_provider", adapter.Name(),
		"progress_cache", cfg.ProgressCache.Driver,
	)
	return deps, closeAll, nil
}

// initEventBus selects the bus named by EVENTBUS_DRIVER. The returned closer
// is nil for the in-memory bus.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, io.Closer, error) {
	driver := "memory"
	if cfg.EventBus != nil && cfg.EventBus.Driver != "" {
		driver = cfg.EventBus.Driver
	}
	switch driver {
	case "memory":
		return infra_eventbus.NewWithMemory(logger), nil, nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, errors.New("redis event bus requires REDIS_URL")
		}
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}
		return bus, bus, nil
	case "kafka":
		if cfg.Kafka == nil || cfg.Kafka.Brokers == "" {
			return nil, nil, errors.New("kafka event bus requires KAFKA_BROKERS")
		}
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
		return bus, bus, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}

// initPaymentAdapter selects the adapter named by PAYMENT_PROVIDER_DRIVER and
// bounds its network calls with PAYMENT_PROVIDER_TIMEOUT.
func initPaymentAdapter(cfg *config.PaymentProvider, logger *slog.Logger) (provider.Adapter, error) {
	if cfg == nil {
		cfg = &config.PaymentProvider{Driver: "simulated"}
	}
	var adapter provider.Adapter
	switch cfg.Driver {
	case "", "simulated":
		sim := simulated.Config{}
		if cfg.Simulated != nil {
			sim.WebhookSecret = cfg.Simulated.WebhookSecret
			sim.Tolerance = cfg.Simulated.Tolerance
		}
		adapter = simulated.New(sim, logger)
	case "stripe":
		if cfg.Stripe == nil || cfg.Stripe.ApiKey == "" {
			return nil, errors.New("stripe payment provider requires PAYMENT_PROVIDER_STRIPE_API_KEY")
		}
		if cfg.Stripe.SigningSecret == "" {
			return nil, errors.New("stripe payment provider requires PAYMENT_PROVIDER_STRIPE_SIGNING_SECRET")
		}
		adapter = stripepayment.New(stripepayment.Config{
			SecretKey:     cfg.Stripe.ApiKey,
			WebhookSecret: cfg.Stripe.SigningSecret,
			Tolerance:     cfg.Stripe.Tolerance,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Driver)
	}
	return provider.WithTimeout(adapter, cfg.Timeout), nil
}

// initProgressCache selects the cache named by PROGRESS_CACHE_DRIVER. The
// "none" driver returns a nil cache.
func initProgressCache(cfg *config.App, logger *slog.Logger) (cache.ProgressCache, io.Closer, error) {
	driver := "memory"
	if cfg.ProgressCache != nil && cfg.ProgressCache.Driver != "" {
		driver = cfg.ProgressCache.Driver
	}
	switch driver {
	case "none":
		return nil, nil, nil
	case "memory":
		c := infra_cache.NewMemoryCache()
		return c, c, nil
	case "redis":
		c, err := infra_cache.NewRedisCache(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Redis progress cache: %w", err)
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unsupported progress cache driver %q", driver)
	}
}
