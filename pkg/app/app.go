package app

import (
	"log/slog"

	"github.com/amirasaad/presale/pkg/cache"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/eventbus"
	"github.com/amirasaad/presale/pkg/handler/notification"
	provider "github.com/amirasaad/presale/pkg/provider/payment"
	"github.com/amirasaad/presale/pkg/repository"
	"github.com/amirasaad/presale/pkg/service/payment"
)

// Deps contains the infrastructure the application is built on.
type Deps struct {
	Store         repository.Store
	Adapter       provider.Adapter
	EventBus      eventbus.Bus
	ProgressCache cache.ProgressCache
	Notifier      notification.Notifier
	Logger        *slog.Logger
}

type App struct {
	Deps           *Deps
	Config         *config.App
	PaymentService *payment.Service
}

func New(deps *Deps, cfg *config.App) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.NewLogNotifier(deps.Logger)
	}
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	if deps.EventBus != nil {
		app.setupEventBus()
	}

	opts := []payment.Option{}
	if cfg != nil && cfg.Reconciliation != nil {
		opts = append(opts, payment.WithConcurrency(cfg.Reconciliation.Concurrency))
	}
	if deps.ProgressCache != nil {
		ttl := config.DefaultProgressCacheTTL
		if cfg != nil && cfg.ProgressCache != nil && cfg.ProgressCache.TTL > 0 {
			ttl = cfg.ProgressCache.TTL
		}
		opts = append(opts, payment.WithProgressCache(deps.ProgressCache, ttl))
	}
	app.PaymentService = payment.New(payment.Deps{
		Store:    deps.Store,
		Adapter:  deps.Adapter,
		EventBus: deps.EventBus,
		Logger:   deps.Logger,
	}, opts...)
	return app
}
