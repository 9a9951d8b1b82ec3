package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thesandboxgame/ownership-gatherer/internal/adapter"
	"github.com/thesandboxgame/ownership-gatherer/internal/block"
	"github.com/thesandboxgame/ownership-gatherer/internal/config"
	"github.com/thesandboxgame/ownership-gatherer/internal/gathering"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
	"github.com/thesandboxgame/ownership-gatherer/internal/providers/ethereum"
	"github.com/thesandboxgame/ownership-gatherer/internal/ratelimit"
	"github.com/thesandboxgame/ownership-gatherer/internal/scanner"
	"github.com/thesandboxgame/ownership-gatherer/internal/snapshot"
	"github.com/thesandboxgame/ownership-gatherer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadOwnerSnapshotConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "owner-snapshot",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting owner snapshot", zap.String("chain", string(cfg.Ethereum.ChainID)))

	if cfg.MetricsAddr != "" {
		metrics.Serve(ctx, cfg.MetricsAddr)
	}

	clockAdapter := adapter.NewClock()

	ethDialer := adapter.NewEthClientDialer()
	adapterEthClient, err := ethDialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	adapterEthClient = ratelimit.NewEthClient(adapterEthClient, ratelimit.Config{
		RequestsPerSecond: cfg.Ethereum.RequestsPerSecond,
		Burst:             cfg.Ethereum.Burst,
	})
	ethereumClient := ethereum.NewClient(cfg.Ethereum.ChainID, adapterEthClient, ethereum.ClientConfig{
		CallTimeout:   cfg.Ethereum.CallTimeout,
		MaxRetries:    cfg.Ethereum.MaxRetries,
		RetryInterval: cfg.Ethereum.RetryInterval,
	})
	defer ethereumClient.Close()

	blockHeadProvider := block.NewBlockHeadProvider(
		ethereum.NewBlockFetcher(adapterEthClient),
		block.Config{
			TTL:           cfg.Ethereum.BlockHeadTTL,
			StaleWindow:   cfg.Ethereum.BlockHeadStaleWindow,
			MaxRetries:    cfg.Ethereum.MaxRetries,
			RetryInterval: cfg.Ethereum.RetryInterval,
		},
		clockAdapter,
	)

	var dataStore store.Store
	if cfg.Database.Enabled() {
		db, err := store.Open(cfg.Database.DSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			cfg.Database.ConnMaxIdleTime)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
		}
		dataStore = store.NewPGStore(db, clockAdapter)
		logger.InfoCtx(ctx, "Connected to database")
	}

	writer := snapshot.NewWriter(cfg.OutputDir, cfg.Ethereum.ChainID.Network(), adapter.NewFileSystem(), adapter.NewJSON())
	job := gathering.NewOwnerSnapshot(gathering.OwnerSnapshotConfig{
		LandContract:    common.HexToAddress(cfg.LandContract),
		LandStartBlock:  cfg.LandStartBlock,
		AssetContract:   common.HexToAddress(cfg.AssetContract),
		AssetStartBlock: cfg.AssetStartBlock,
		Scanner: scanner.Config{
			InitialRangeSize: cfg.Scanner.InitialRangeSize,
			MinRangeSize:     cfg.Scanner.MinRangeSize,
			GrowthThreshold:  cfg.Scanner.GrowthThreshold,
		},
	}, cfg.Ethereum.ChainID.Network(), ethereumClient, blockHeadProvider, writer, dataStore)

	result, err := job.Run(ctx)
	if err != nil {
		logger.FatalCtx(ctx, "Owner snapshot failed", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Owner snapshot completed",
		zap.Uint64("head", result.Head),
		zap.Int("events", result.Events),
		zap.Int("owners", result.Owners),
		zap.String("path", result.Path))
}
