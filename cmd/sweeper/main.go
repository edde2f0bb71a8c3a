package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ff-vesting/internal/adapter"
	"github.com/feral-file/ff-vesting/internal/aggregate"
	"github.com/feral-file/ff-vesting/internal/config"
	"github.com/feral-file/ff-vesting/internal/engine"
	"github.com/feral-file/ff-vesting/internal/ledger"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/providers/ethereum"
	"github.com/feral-file/ff-vesting/internal/providers/jetstream"
	"github.com/feral-file/ff-vesting/internal/store"
	"github.com/feral-file/ff-vesting/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		Service:         "release-sweeper",
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Release Sweeper")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Connect to the Ethereum RPC endpoint
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	defer ethClient.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum RPC", zap.String("rpc_url", cfg.Ethereum.RPCURL))

	// Initialize token transferor
	transferor, err := ethereum.NewERC20Transferor(ethereum.Config{
		OperatorKey:         cfg.Ethereum.OperatorKey,
		ReceiptTimeout:      cfg.Ethereum.ReceiptTimeout,
		ReceiptPollInterval: cfg.Ethereum.ReceiptPollInterval,
	}, ethClient, clock)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize token transferor", zap.Error(err))
	}

	// Connect to NATS JetStream
	publisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		PublishTimeout: cfg.NATS.PublishTimeout,
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer publisher.Close()
	logger.InfoCtx(ctx, "Connected to NATS", zap.String("stream", cfg.NATS.StreamName))

	// Select the ledger variant
	var book engine.Book
	switch cfg.Ledger.Variant {
	case config.LEDGER_VARIANT_AGGREGATE:
		book = aggregate.NewBook(cfg.Ledger.ReleaseWindow)
	default:
		book = ledger.NewBook()
	}
	logger.InfoCtx(ctx, "Initialized ledger book", zap.String("variant", cfg.Ledger.Variant))

	// Create the engine and replay the journaled state
	eng := engine.New(book, transferor, dataStore, publisher, clock)
	state, err := dataStore.LoadState(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load ledger state", zap.Error(err))
	}
	eng.Restore(state)
	logger.InfoCtx(ctx, "Restored ledger state",
		zap.Int("schedules", len(state.Schedules)),
		zap.Int("slots", len(state.Slots)),
	)

	// Initialize the release sweeper
	sweeperConfig := &sweeper.ReleaseSweeperConfig{
		Interval:       cfg.ReleaseSweeper.Interval,
		WorkerPoolSize: cfg.ReleaseSweeper.Worker.WorkerPoolSize,
		QueueSize:      cfg.ReleaseSweeper.Worker.WorkerQueueSize,
	}
	releaseSweeper := sweeper.NewReleaseSweeper(sweeperConfig, eng, clock)

	logger.InfoCtx(ctx, "Initialized release sweeper",
		zap.Duration("interval", cfg.ReleaseSweeper.Interval),
		zap.Int("worker_pool_size", cfg.ReleaseSweeper.Worker.WorkerPoolSize),
	)

	// Start the sweeper in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := releaseSweeper.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the sweeper
	cancel()

	// Give the sweeper time to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := releaseSweeper.Stop(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err)
	}

	logger.InfoCtx(shutdownCtx, "Release sweeper stopped")
}
