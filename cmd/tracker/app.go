package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/httpclient"
	clientprovider "portfolio_tracker/internal/infrastructure/network/client"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/infrastructure/snapshotstore"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/metrics"
)

const configPathEnv = "CONFIG_PATH"

// app holds the wired components shared by every command.
type app struct {
	cfg              *configloader.Config
	zapLogger        *zap.Logger
	logger           port.Logger
	store            *snapshotstore.CSVStore
	portfolioService *service.PortfolioServiceImpl
}

// configFlag is embedded by commands that need the configuration file.
type configFlag struct {
	configPath string
	envFile    string
}

func (c *configFlag) register(setFlag func(p *string, name, value, usage string)) {
	def := os.Getenv(configPathEnv)
	if def == "" {
		def = configloader.DefaultConfigPath
	}
	setFlag(&c.configPath, "config", def, "path to the YAML configuration (env "+configPathEnv+")")
	setFlag(&c.envFile, "env", "", "dotenv file with secrets (defaults to .env when present)")
}

// newApp loads configuration, initializes logging and metrics and wires the
// valuation pipeline.
func newApp(cf configFlag) (*app, error) {
	var envFiles []string
	if cf.envFile != "" {
		envFiles = append(envFiles, cf.envFile)
	}
	cfg, err := configloader.Load(cf.configPath, envFiles...)
	if err != nil {
		return nil, err
	}

	zapLogger := logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	metrics.MustRegisterMetrics()
	appLogger := logger.NewSlogAdapter()

	registry, err := service.NewAssetRegistry(cfg.Assets)
	if err != nil {
		return nil, fmt.Errorf("invalid asset configuration: %w", err)
	}

	netDefProvider, err := networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks)
	if err != nil {
		return nil, fmt.Errorf("invalid network configuration: %w", err)
	}
	tokenProvider := tokenloader.NewTokenLoader(cfg.Tokens.Dir, appLogger)
	clientProvider := clientprovider.NewClientProvider(cfg, appLogger)

	balanceTTL := time.Duration(cfg.Cache.BalanceTTLSeconds) * time.Second
	wallets := service.NewCachedBalanceSource(
		service.NewWalletBalanceSource(cfg.Networks, netDefProvider, tokenProvider, clientProvider, appLogger, cfg.Performance.MaxConcurrentRequests),
		balanceTTL,
	)

	var optional []port.BalanceSource
	if cfg.Coinbase.Enabled {
		coinbase, err := httpclient.NewCoinbaseClient(cfg.Coinbase, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("coinbase client: %w", err)
		}
		optional = append(optional, service.NewCachedBalanceSource(coinbase, balanceTTL))
	}

	prices := service.NewCachedPriceSource(
		httpclient.NewCoinGeckoClient(cfg.CoinGecko, zapLogger),
		time.Duration(cfg.Cache.PriceTTLSeconds)*time.Second,
	)

	store := snapshotstore.NewCSVStore(cfg.Snapshots.Path, cfg.Snapshots.Interval, appLogger)

	appLogger.Info("Portfolio tracker initialized",
		"networks", len(netDefProvider.GetAllNetworkDefinitions()),
		"assets", len(registry.Symbols()),
		"coinbase", cfg.Coinbase.Enabled,
		"snapshots", store.Path(),
		"snapshot_interval", cfg.Snapshots.Interval.String())

	return &app{
		cfg:              cfg,
		zapLogger:        zapLogger,
		logger:           appLogger,
		store:            store,
		portfolioService: service.NewPortfolioService(registry, wallets, optional, prices, store, appLogger),
	}, nil
}

func (a *app) close() {
	_ = a.zapLogger.Sync()
}
