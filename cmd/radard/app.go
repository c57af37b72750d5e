package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/phenomenon0/matchradar/pkg/alerts"
	"github.com/phenomenon0/matchradar/pkg/api"
	"github.com/phenomenon0/matchradar/pkg/config"
	"github.com/phenomenon0/matchradar/pkg/engine"
	"github.com/phenomenon0/matchradar/pkg/enrich"
	"github.com/phenomenon0/matchradar/pkg/feed"
	"github.com/phenomenon0/matchradar/pkg/metrics"
	"github.com/phenomenon0/matchradar/pkg/scheduler"
	"github.com/phenomenon0/matchradar/pkg/streaming"
)

const shutdownTimeout = 10 * time.Second

// app is one wired daemon.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.RadarMetrics

	redis   *redis.Client
	hub     *streaming.Hub
	tracker *enrich.Tracker
	engine  *engine.Engine
	sched   *scheduler.Scheduler
	server  *http.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.RadarMetrics) (*app, error) {
	a := &app{cfg: cfg, log: logger, metrics: m}
	sessionID := uuid.NewString()

	a.hub = streaming.NewHub(streaming.HubConfig{
		Logger:          &logger,
		OnClientsChange: m.SetStreamClients,
	})

	store, err := a.newStore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	radar := alerts.NewRadar(alerts.Config{
		Store:      store,
		Notifier:   alerts.Fanout{alerts.LogNotifier{Logger: logger}, streaming.AlertNotifier{Hub: a.hub}},
		Logger:     &logger,
		MaxHistory: cfg.Alerts.History,
	})

	analyzer := enrich.NewAnalyzer(newGenerator(cfg.Enrichment), enrich.AnalyzerConfig{
		Timeout: cfg.Enrichment.Timeout,
		Logger:  &logger,
	})
	a.tracker = enrich.NewTracker(analyzer, enrich.TrackerConfig{
		OnUpdate: func(u enrich.Update) { a.engine.HandleAnalysis(u) },
		Logger:   &logger,
	})

	a.engine, err = engine.New(engine.Config{
		SessionID: sessionID,
		Radar:     radar,
		Tracker:   a.tracker,
		Metrics:   m,
		Publisher: a.hub,
		Logger:    &logger,
	})
	if err != nil {
		return nil, err
	}

	a.sched = scheduler.New(scheduler.Config{
		Interval: cfg.Scheduler.Interval,
		Timeout:  cfg.Feed.Timeout,
		Logger:   &logger,
	}, newFetcher(cfg.Feed, m), a.engine)
	a.engine.AttachRefresher(a.sched)

	bookmaker := cfg.Server.BookmakerSearch
	if bookmaker == config.BookmakerNone {
		bookmaker = ""
	}
	router := api.NewRouter(api.NewHandler(a.engine, &logger, api.WithBookmakerSearch(bookmaker)), api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}),
		Stream:      a.hub.ServeWS,
		Logger:      &logger,
	})
	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

func (a *app) newStore(ctx context.Context, sessionID string) (alerts.Store, error) {
	if a.cfg.Alerts.Store != config.StoreRedis {
		return alerts.NewMemoryStore(), nil
	}

	rc := a.cfg.Alerts.Redis
	a.redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.redis.Ping(pctx).Err(); err != nil {
		_ = a.redis.Close()
		return nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
	}
	a.log.Info().Str("addr", rc.Addr).Msg("alert store: redis")
	return alerts.NewRedisStore(a.redis, sessionID, rc.TTL), nil
}

// newFetcher returns nil when no feed is configured so the scheduler serves
// the demo board.
func newFetcher(cfg config.FeedConfig, m *metrics.RadarMetrics) feed.Fetcher {
	if cfg.URL == "" {
		return nil
	}
	return feed.NewClient(cfg.URL,
		feed.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		feed.WithRateLimit(cfg.RateLimit, cfg.Burst),
		feed.WithBreaker(cfg.BreakerFailures, cfg.BreakerCooldown),
		feed.WithStateChange(func(_, to gobreaker.State) {
			m.SetBreakerState(int(to))
		}),
	)
}

func newGenerator(cfg config.EnrichmentConfig) enrich.TextGenerator {
	opts := []enrich.Option{
		enrich.WithTimeout(cfg.Timeout),
		enrich.WithRateLimit(cfg.RateLimit, cfg.Burst),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, enrich.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, enrich.WithModel(cfg.Model))
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return enrich.NewGeminiClient(cfg.APIKey, opts...)
	case config.ProviderChat:
		return enrich.NewChatClient(cfg.APIKey, opts...)
	default:
		return nil
	}
}

// run serves until ctx is cancelled, then shuts everything down.
func (a *app) run(ctx context.Context, armRadar bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)
	go a.tracker.Run(ctx)

	if armRadar {
		if err := a.engine.SetRadar(ctx, true); err != nil {
			return fmt.Errorf("arm radar: %w", err)
		}
	}
	if err := a.sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Str("session_id", a.engine.SessionID()).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
	if err := a.sched.Stop(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("scheduler stop")
	}
	a.tracker.Wait()
	a.close()
	return runErr
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("redis close")
		}
	}
}
