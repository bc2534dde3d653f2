package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsCollector/internal/api"
	"NewsCollector/internal/config"
	"NewsCollector/internal/coordination"
	"NewsCollector/internal/infrastructure/collectorclient"
	"NewsCollector/internal/infrastructure/memstore"
	"NewsCollector/internal/infrastructure/parser"
	"NewsCollector/internal/infrastructure/redisstore"
	"NewsCollector/internal/infrastructure/scheduler"
	"NewsCollector/internal/infrastructure/storage"
	"NewsCollector/internal/infrastructure/telegram"
	"NewsCollector/internal/logging"
	"NewsCollector/internal/metrics"
	"NewsCollector/internal/ports"
	"NewsCollector/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// backend is everything the services need from durable storage.
type backend interface {
	ports.ArticleStore
	ports.Transactor
	ports.ConfigStore
	ports.PublisherConfigStore
	ports.OffsetStore
	ports.HeartbeatStore
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	schedulers   []*usecase.Scheduler
	coordinators []*coordination.Coordinator
	closers      []func() error
	server       *http.Server
}

// New builds the storage, the enabled cycles and the HTTP API.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{
		cfg:     cfg,
		logger:  logging.Component(baseLogger, "app"),
		metrics: metrics.New(),
	}

	store, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	heartbeats, err := a.openHeartbeats(ctx, store)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	articles := usecase.NewArticleService(store)
	registry := parser.NewRegistry(
		&http.Client{Timeout: cfg.Collector.HTTPTimeout},
		cfg.Collector.UserAgent,
		logging.Component(baseLogger, "source"),
	)
	sources := parser.NewStrategySource(registry, logging.Component(baseLogger, "source"))

	var trigger func()
	if cfg.Collector.Enabled {
		collect, err := a.collectScheduler(store, heartbeats, sources, baseLogger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		trigger = collect.Trigger
	}
	if cfg.Publisher.Enabled {
		var feed ports.ArticleFeed = articles
		if cfg.Publisher.CollectorURL != "" {
			feed = collectorclient.NewClient(cfg.Publisher.CollectorURL, cfg.Collector.HTTPTimeout)
		}
		if err := a.publishScheduler(store, heartbeats, feed, baseLogger); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	configs := usecase.NewConfigService(store, store, sources, trigger, logging.Component(baseLogger, "configs"))
	router := api.NewRouter(api.Deps{
		Articles: articles,
		Configs:  configs,
		Metrics:  a.metrics.Handler(),
		Health:   health(store),
		Logger:   logging.Component(baseLogger, "api"),
		Debug:    cfg.Logging.Level == "debug",
	})
	a.server = router.NewServer(cfg.HTTP.Addr)

	return a, nil
}

// Run starts the schedulers and the API and blocks until ctx is done or the server fails.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range a.schedulers {
		if err := s.Start(gctx); err != nil {
			return errors.Join(fmt.Errorf("start scheduler: %w", err), a.shutdown())
		}
	}

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// Close releases storage and coordinators. Run calls it on shutdown.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.coordinators {
		errs = append(errs, c.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.coordinators, a.closers = nil, nil
	return errors.Join(errs...)
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down")
	errs := []error{a.server.Shutdown(ctx)}
	for _, s := range a.schedulers {
		errs = append(errs, s.Stop(ctx))
	}
	errs = append(errs, a.Close())
	return errors.Join(errs...)
}

func (a *Application) openStorage(ctx context.Context) (backend, error) {
	switch a.cfg.Database.Driver {
	case config.DriverMemory:
		a.logger.Warn("using in-memory storage, data is lost on exit")
		return memstore.New(), nil
	case config.DriverPostgres:
		db, err := storage.Connect(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if a.cfg.Database.Migrate {
			if err := storage.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		pg := storage.NewPostgres(db)
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

func (a *Application) openHeartbeats(ctx context.Context, store backend) (ports.HeartbeatStore, error) {
	if a.cfg.Coordination.Backend != config.BackendRedis {
		return store, nil
	}
	client, err := redisstore.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return redisstore.NewHeartbeatStore(client), nil
}

func (a *Application) coordinator(store ports.HeartbeatStore, group string, baseLogger *slog.Logger) (*coordination.Coordinator, error) {
	c, err := coordination.New(store, coordination.Config{
		Group:    group,
		Interval: a.cfg.Coordination.HeartbeatInterval,
		Settle:   a.cfg.Coordination.Settle,
	}, a.metrics, logging.Component(baseLogger, "coordinator"))
	if err != nil {
		return nil, fmt.Errorf("coordinator %s: %w", group, err)
	}
	a.coordinators = append(a.coordinators, c)
	return c, nil
}

func (a *Application) collectScheduler(store backend, heartbeats ports.HeartbeatStore, sources usecase.SourceBuilder, baseLogger *slog.Logger) (*usecase.Scheduler, error) {
	coord, err := a.coordinator(heartbeats, a.cfg.Coordination.CollectorGroup, baseLogger)
	if err != nil {
		return nil, err
	}

	collector := usecase.NewCollector(store, store, usecase.DedupScope(a.cfg.Collector.DedupScope), a.metrics,
		logging.Component(baseLogger, "collector"))
	service := usecase.NewCollectService(usecase.CollectServiceDeps{
		Configs:     store,
		Sources:     sources,
		Collector:   collector,
		Coordinator: coord,
		RetryDelay:  a.cfg.Collector.RetryDelay,
		Metrics:     a.metrics,
		Logger:      logging.Component(baseLogger, "collect_service"),
	})

	s := usecase.NewScheduler(scheduler.NewTimerScheduler("collector", baseLogger), service.Cycle)
	a.schedulers = append(a.schedulers, s)
	return s, nil
}

func (a *Application) publishScheduler(store backend, heartbeats ports.HeartbeatStore, feed ports.ArticleFeed, baseLogger *slog.Logger) error {
	coord, err := a.coordinator(heartbeats, a.cfg.Coordination.PublisherGroup, baseLogger)
	if err != nil {
		return err
	}

	tg := a.cfg.Publisher.Telegram
	service := usecase.NewPublishService(usecase.PublishServiceDeps{
		Configs:      store,
		Offsets:      store,
		Feed:         feed,
		Notifier:     telegram.NewNotifier(telegram.Config{APIURL: tg.APIURL, BotToken: tg.BotToken, ChatID: tg.ChatID}),
		Coordinator:  coord,
		RetryDelay:   a.cfg.Publisher.RetryDelay,
		SendInterval: a.cfg.Publisher.SendInterval,
		Location:     a.cfg.Publisher.Location(),
		Metrics:      a.metrics,
		Logger:       logging.Component(baseLogger, "publisher"),
	})

	a.schedulers = append(a.schedulers, usecase.NewScheduler(scheduler.NewTimerScheduler("publisher", baseLogger), service.Cycle))
	return nil
}

func health(store backend) func(ctx context.Context) error {
	p, ok := store.(pinger)
	if !ok {
		return nil
	}
	return p.Ping
}

// Migrate creates the Postgres schema and exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires the %s driver", config.DriverPostgres)
	}
	db, err := storage.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return storage.Migrate(ctx, db)
}
