package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fundscope/internal/api"
	"fundscope/internal/catalog"
	"fundscope/internal/chain"
	"fundscope/internal/config"
	"fundscope/internal/contract"
	"fundscope/internal/eligibility"
	"fundscope/internal/ledger"
	"fundscope/internal/metrics"
	"fundscope/internal/storage"
	"fundscope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "fundscope",
		Short:        "Crowdfunding chain sync service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the catalog sync loop",
		RunE:  runSync,
	}
	addCommonFlags(syncCmd.Flags())
	root.AddCommand(syncCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync loop and the HTTP API",
		RunE:  runServe,
	}
	addCommonFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	root.AddCommand(serveCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Scan one account's donation history",
		RunE:  runHistory,
	}
	addCommonFlags(historyCmd.Flags())
	historyCmd.Flags().String("account", "", "account address to scan")
	root.AddCommand(historyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "HTTP RPC URL")
	flags.String("ws", "", "WebSocket RPC URL (preferred when reachable)")
	flags.Duration("dial-timeout", 5*time.Second, "streaming connection establishment timeout")
	flags.String("registry", "", "campaign registry contract address")
	flags.String("router", "", "donation router contract address")
	flags.String("security", "", "security module contract address")
	flags.String("id-base", "auto", "campaign id base (auto, 0, 1)")
	flags.Uint64("start-block", 0, "first block for donation log scans")
	flags.Duration("poll-interval", 12*time.Second, "head polling interval")
	flags.Int("chunk-size", 10, "campaign ids per load chunk")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("pg-dsn", "", "Postgres DSN for snapshots and metadata")
	flags.String("private-key", "", "hex private key for disbursement transactions")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

type app struct {
	cfg     config.Config
	logger  *zap.Logger
	chain   *chain.Client
	caller  *contract.Caller
	store   *postgres.Store
	metrics *metrics.Metrics
	catalog *catalog.Catalog
}

func buildApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" && cfg.WSURL == "" {
		return nil, fmt.Errorf("rpc or ws url is required")
	}
	if cfg.RegistryAddr == "" {
		return nil, fmt.Errorf("registry address is required")
	}

	addrs, err := parseAddresses(cfg)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.Dial(ctx, chain.DialOptions{
		RPCURL:      cfg.RPCURL,
		WSURL:       cfg.WSURL,
		DialTimeout: cfg.DialTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect chain: %w", err)
	}

	m := metrics.New()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		chain:   chainClient,
		caller:  contract.NewCaller(chainClient, addrs, m),
		metrics: m,
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.store = store
	}

	var sink storage.Storage
	if a.store != nil {
		sink = a.store
	}
	a.catalog = catalog.New(a.caller, chainClient, sink, a.metrics, catalog.Options{
		ForcedIDBase: cfg.ForcedIDBase,
		ChunkSize:    cfg.ChunkSize,
		PollInterval: cfg.PollInterval,
	}, logger)

	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	a.chain.Close()
	a.logger.Sync()
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.catalog.Load(ctx); err != nil {
		return err
	}

	a.logger.Info("sync start",
		zap.Bool("streaming", a.chain.IsStreaming()),
		zap.Duration("poll_interval", a.cfg.PollInterval),
	)
	err = a.catalog.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.catalog.Load(ctx); err != nil {
		return err
	}
	go func() {
		if err := a.catalog.Run(ctx); err != nil && err != context.Canceled {
			a.logger.Error("catalog sync stopped", zap.Error(err))
		}
	}()

	router := common.HexToAddress(a.cfg.RouterAddr)
	scanner := ledger.NewHistoryScanner(a.chain, router, a.cfg.StartBlock, a.metrics, a.logger)
	evaluator := eligibility.NewEvaluator(a.caller, a.logger)

	var runner *eligibility.Runner
	var operator common.Address
	if a.cfg.PrivateKey != "" && a.cfg.RouterAddr != "" {
		chainID, err := a.chain.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("chain id: %w", err)
		}
		transactor, err := contract.NewTransactor(a.chain.Backend(), router, a.cfg.PrivateKey, chainID)
		if err != nil {
			return fmt.Errorf("build transactor: %w", err)
		}
		runner = eligibility.NewRunner(evaluator, transactor, a.catalog, a.logger)
		operator = transactor.From()
	}

	var meta storage.MetadataStore
	if a.store != nil {
		meta = a.store
	}
	server := api.NewServer(api.Options{
		Catalog:   a.catalog,
		Ledger:    a.caller,
		Scanner:   scanner,
		Evaluator: evaluator,
		Runner:    runner,
		Operator:  operator,
		Metadata:  meta,
		Metrics:   a.metrics,
	}, a.logger)

	a.logger.Info("serve start",
		zap.String("listen", a.cfg.ListenAddr),
		zap.Bool("streaming", a.chain.IsStreaming()),
	)
	return server.Run(a.cfg.ListenAddr)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	account, _ := cmd.Flags().GetString("account")
	if !common.IsHexAddress(account) {
		return fmt.Errorf("valid --account address is required")
	}

	a, err := buildApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	router := common.HexToAddress(a.cfg.RouterAddr)
	scanner := ledger.NewHistoryScanner(a.chain, router, a.cfg.StartBlock, a.metrics, a.logger)

	events, err := scanner.Scan(ctx, common.HexToAddress(account))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return err
		}
	}

	if a.store != nil {
		if err := a.store.PutDonationBatch(ctx, events); err != nil {
			return fmt.Errorf("persist history: %w", err)
		}
	}

	a.logger.Info("history scan complete", zap.String("account", account), zap.Int("events", len(events)))
	return nil
}

func parseAddresses(cfg config.Config) (contract.Addresses, error) {
	addrs := contract.Addresses{}
	if !common.IsHexAddress(cfg.RegistryAddr) {
		return addrs, fmt.Errorf("invalid registry address: %s", cfg.RegistryAddr)
	}
	addrs.Registry = common.HexToAddress(cfg.RegistryAddr)

	if cfg.RouterAddr != "" {
		if !common.IsHexAddress(cfg.RouterAddr) {
			return addrs, fmt.Errorf("invalid router address: %s", cfg.RouterAddr)
		}
		addrs.Router = common.HexToAddress(cfg.RouterAddr)
	}
	if cfg.SecurityAddr != "" {
		if !common.IsHexAddress(cfg.SecurityAddr) {
			return addrs, fmt.Errorf("invalid security address: %s", cfg.SecurityAddr)
		}
		addrs.Security = common.HexToAddress(cfg.SecurityAddr)
	}
	return addrs, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
