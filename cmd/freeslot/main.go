package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Kerhoff/FreeSlot/internal/api"
	"github.com/Kerhoff/FreeSlot/internal/config"
	"github.com/Kerhoff/FreeSlot/internal/handlers"
	"github.com/Kerhoff/FreeSlot/internal/ics"
	"github.com/Kerhoff/FreeSlot/internal/metrics"
	"github.com/Kerhoff/FreeSlot/internal/nlparse"
	"github.com/Kerhoff/FreeSlot/internal/repository/memory"
	"github.com/Kerhoff/FreeSlot/internal/repository/postgres"
	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
	"github.com/Kerhoff/FreeSlot/pkg/logger"
)

const (
	feedFetchTimeout = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting FreeSlot...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Repositories
	var repos service.Repositories
	switch cfg.Store {
	case config.StoreMemory:
		l.Warn("Using the in-memory store; all data is lost on restart")
		store := memory.New()
		repos = service.Repositories{
			Users:        store.Users,
			Friendships:  store.Friendships,
			Groups:       store.Groups,
			Availability: store.Availability,
			Feeds:        store.Feeds,
		}
	default:
		db, err := config.NewDatabase(ctx, cfg.DatabaseURL, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}

		repos = service.Repositories{
			Users:        postgres.NewUserRepository(db.DB),
			Friendships:  postgres.NewFriendshipRepository(db.DB),
			Groups:       postgres.NewGroupRepository(db.DB),
			Availability: postgres.NewAvailabilityRepository(db.DB),
			Feeds:        postgres.NewCalendarFeedRepository(db.DB),
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Service layer
	svc := service.New(l, service.Options{
		Location:           cfg.Location,
		OverlapConcurrency: cfg.OverlapConcurrency,
		SyncWindowDays:     cfg.SyncWindowDays,
		Metrics:            m,
	}, repos)
	svc.SetFeedFetcher(ics.NewFetcher(cfg.ICSCacheDir, feedFetchTimeout, l))
	if cfg.NLParseURL != "" {
		svc.SetParser(nlparse.New(cfg.NLParseURL, cfg.NLParseTimeout, l))
	} else {
		l.Info("NLPARSE_URL not set; free-text availability is disabled")
	}

	// Start calendar sync scheduler
	go func() {
		if err := svc.StartCalendarSyncScheduler(ctx, cfg.SyncCron); err != nil {
			l.Errorf("Calendar sync scheduler error: %v", err)
		}
	}()

	// Start HTTP servers
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve := func(name string, srv *http.Server) {
		l.Infof("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("%s error: %v", name, err)
			cancel()
		}
	}
	go serve("HTTP server", httpServer)
	go serve("Metrics server", metricsServer)

	// Telegram bot
	if cfg.BotEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}
		registerCommands(bot, svc, l, cfg.NLParseURL != "")

		if err := bot.SetCommands(handlers.Descriptions); err != nil {
			l.Warnf("Failed to publish command menu: %v", err)
		}

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		l.Info("TELEGRAM_TOKEN not set; running without the bot")
	}

	l.Info("FreeSlot started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorf("Server shutdown error: %v", err)
		}
	}

	l.Info("FreeSlot stopped")
}
