package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensholdgaard/auctionboard/internal/api"
	"github.com/jensholdgaard/auctionboard/internal/auction"
	"github.com/jensholdgaard/auctionboard/internal/auth"
	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/config"
	"github.com/jensholdgaard/auctionboard/internal/health"
	"github.com/jensholdgaard/auctionboard/internal/leader"
	"github.com/jensholdgaard/auctionboard/internal/poll"
	"github.com/jensholdgaard/auctionboard/internal/projection"
	"github.com/jensholdgaard/auctionboard/internal/store"
	"github.com/jensholdgaard/auctionboard/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/auctionboard/internal/store/memstore"
	_ "github.com/jensholdgaard/auctionboard/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open the ledger store using the configured driver.
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to ledger store", slog.String("driver", cfg.Database.Driver))

	// Wire the core components.
	engine := auction.NewEngine(repos, logger, tp.TracerProvider)
	projector := projection.New(repos, tp.TracerProvider)
	gate := auth.NewGate(repos.Users, logger, tp.TracerProvider, clk)
	refresher := poll.NewRefresher(projector, cfg.Refresh.Interval, 10, logger)

	if err := gate.EnsureOperator(ctx, cfg.Auth.Operator, cfg.Auth.Password); err != nil {
		return fmt.Errorf("bootstrapping operator: %w", err)
	}

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "ledger",
			Check: repos.Ping,
		},
	)

	server := api.New(logger, gate, engine, projector, refresher, healthHandler)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// serve is the active role: refresh observer snapshots and accept
	// operator writes. With leader election enabled only one replica runs it.
	serve := func(ctx context.Context) {
		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auction board is running", slog.String("version", version))

		refresher.Run(ctx)

		healthHandler.SetReady(false)
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, serve, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		serve(ctx)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
