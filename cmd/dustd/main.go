package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dustchain/cmd/internal/passphrase"
	"dustchain/config"
	"dustchain/core/chain"
	"dustchain/core/runtime"
	"dustchain/core/state"
	"dustchain/crypto"
	"dustchain/observability/logging"
	telemetry "dustchain/observability/otel"
	"dustchain/rpc"
	"dustchain/services/indexer"
	"dustchain/storage"
)

const (
	producerPassEnv = "DUST_PRODUCER_PASS"
	envVar          = "DUST_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		slog.Error("dustd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configFile string) error {
	passSource := passphrase.NewSource(producerPassEnv)
	pass, err := passSource.Get()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configFile, pass)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv(envVar))
	if env == "" {
		env = cfg.Environment
	}
	logger, logCloser := logging.SetupWithFile("dustd", env, logging.FileOptions{Path: cfg.LogFile, Compress: true})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromTelemetry("dustd", env, cfg.Telemetry, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	key, err := crypto.LoadFromKeystore(cfg.ProducerKeystore, pass)
	if err != nil {
		return fmt.Errorf("load producer key: %w", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	opts, err := runtimeOptions(cfg, logger)
	if err != nil {
		return err
	}
	rt, err := runtime.New(state.NewManager(db), opts)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	if dsn := strings.TrimSpace(cfg.IndexerDSN); dsn != "" {
		resolved, err := indexer.FileDSN(dsn)
		if err != nil {
			return err
		}
		ix, err := indexer.Open(resolved, indexer.WithLogger(logger), indexer.WithBlockFunc(rt.Height))
		if err != nil {
			return err
		}
		defer ix.Close()
		rt.Subscribe(ix)
		logger.Info("event indexer enabled", logging.MaskField("dsn", dsn))
	}

	blockchain, err := chain.NewBlockchain(db)
	if err != nil {
		return fmt.Errorf("open chain: %w", err)
	}
	pool := chain.NewPool(rt, 0)
	producer, err := chain.NewProducer(rt, pool, blockchain, key, chain.ProducerOptions{
		BlockTime: time.Duration(cfg.BlockTimeSeconds) * time.Second,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	genesis, err := chain.GenesisFromConfig(cfg)
	if err != nil {
		return err
	}
	if _, err := producer.Bootstrap(genesis); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	server := rpc.NewServer(rt, pool, rpc.ServerOptions{
		Auth:      cfg.RPCAuth,
		RateLimit: cfg.RPCRateLimit,
		Logger:    logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           otelhttp.NewHandler(server.Router(), "dustd.rpc"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 3)
	go func() {
		logger.Info("rpc listening", slog.String("address", cfg.RPCAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()

	var metricsServer *http.Server
	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		if err := producer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("producer: %w", err)
		}
	}()

	_, height := blockchain.Tip()
	logger.Info("dustd running",
		logging.MaskAddress("producer", key.PubKey().Address().String()),
		slog.Uint64("height", height))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	stop()
	<-producerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	logger.Info("dustd stopped")
	return runErr
}

func runtimeOptions(cfg *config.Config, logger *slog.Logger) (runtime.Options, error) {
	opts := runtime.Options{
		Global:        cfg.Global,
		CommitteeSize: cfg.CommitteeSize,
		Logger:        logger,
	}
	if raw := strings.TrimSpace(cfg.Treasury); raw != "" {
		addr, err := crypto.ParseAccount(raw)
		if err != nil {
			return opts, fmt.Errorf("treasury: %w", err)
		}
		opts.Treasury = addr
	}
	for _, raw := range cfg.Oracles {
		addr, err := crypto.ParseAccount(raw)
		if err != nil {
			return opts, fmt.Errorf("oracle %q: %w", raw, err)
		}
		opts.Oracles = append(opts.Oracles, addr)
	}
	// Verdicts reach the pool only through the oracle-scoped RPC method.
	opts.AllowUnsignedVerification = true
	return opts, nil
}
