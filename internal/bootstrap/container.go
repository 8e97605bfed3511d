package bootstrap

import (
	"context"
	"sync"

	chclient "prismatics/internal/adapters/clickhouse"
	"prismatics/internal/adapters/config"
	redisclient "prismatics/internal/adapters/redis"
	"prismatics/internal/api"
	"prismatics/internal/api/dashboard"
	"prismatics/internal/api/health"
	"prismatics/internal/api/ws"
	"prismatics/internal/domain/event"
	"prismatics/internal/events"
	"prismatics/internal/metrics"
	chrepo "prismatics/internal/repository/clickhouse"
	"prismatics/internal/services/analytics"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer
	EventStore event.Store

	// Services
	Analytics *analytics.Service

	// Change notification
	Broadcaster *events.Broadcaster
	Listener    *events.RedisListener

	// Application Layer
	Server *api.Server

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// New wires the full dependency graph in initialization order.
// Infrastructure first, then the store, then services, then transport.
func New(cfg *config.Config, log *logger.Logger, tracker errors.Tracker) (*Container, error) {
	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Initializing ClickHouse...")
	ch, err := chclient.NewClient(cfg.ClickHouse)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "clickhouse init failed")
	}

	log.Info("Initializing Redis...")
	rd, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		_ = ch.Close()
		cancel()
		return nil, errors.Wrap(err, "redis init failed")
	}

	store := chrepo.NewEventStore(ch.Conn(), cfg.ClickHouse.Table, log)
	svc := analytics.NewService(store, log)

	broadcaster := events.NewBroadcaster(log)
	listener := events.NewRedisListener(rd, cfg.Notifier.Channel, broadcaster, log)

	metrics.MustRegister()

	healthHandler := health.New(log, ch.Conn(), rd.Client(), cfg.App.Name, Version)
	dashboardHandler := dashboard.NewHandler(svc, log)
	wsHandler := ws.NewHandler(broadcaster, log)

	server := api.NewServer(api.ServerConfig{
		Addr:        cfg.HTTP.Addr(),
		ServiceName: cfg.App.Name,
		Version:     Version,
	}, healthHandler, dashboardHandler, wsHandler, log)

	return &Container{
		Config:       cfg,
		Log:          log,
		ErrorTracker: tracker,
		CH:           ch,
		Redis:        rd,
		EventStore:   store,
		Analytics:    svc,
		Broadcaster:  broadcaster,
		Listener:     listener,
		Server:       server,
		Lifecycle:    NewLifecycle(),
		WG:           &sync.WaitGroup{},
		Context:      ctx,
		Cancel:       cancel,
	}, nil
}

// Start launches the HTTP server and the change-notification listener.
// Returns a channel that receives a fatal server error, if any.
func (c *Container) Start() <-chan error {
	errCh := make(chan error, 1)

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Server.Start(); err != nil {
			errCh <- err
		}
	}()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Listener.Run(c.Context); err != nil {
			// The dashboard stays usable without live updates, so a
			// dead listener is reported but not fatal.
			c.Log.Errorf("change listener stopped: %v", err)
		}
	}()

	c.Log.Info("System initialized successfully")
	return errCh
}

// Shutdown performs the coordinated teardown.
func (c *Container) Shutdown() {
	c.Lifecycle.Shutdown(c)
}
