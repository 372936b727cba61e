package verifier

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dustchain/observability/logging"
	telemetry "dustchain/observability/otel"
)

// Main runs the verification worker using the provided command line flags.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/verifier/config.yaml", "path to verifier config")
	flag.Parse()

	cfg, err := Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := strings.TrimSpace(os.Getenv("DUST_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("dust-verifierd", env)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	insecure := true
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "dust-verifierd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     otlpEndpoint != "",
		Traces:      otlpEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	transport := otelhttp.NewTransport(http.DefaultTransport)
	tron, err := NewTronClient(cfg.Tron, &http.Client{Transport: transport, Timeout: cfg.Tron.Timeout.Duration})
	if err != nil {
		return fmt.Errorf("tron client: %w", err)
	}
	node, err := NewNodeClient(cfg.NodeURL, cfg.Auth, &http.Client{Transport: transport, Timeout: 15 * time.Second})
	if err != nil {
		return fmt.Errorf("node client: %w", err)
	}
	worker, err := NewWorker(cfg, node, tron, WithWorkerLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info("verifier started",
		"node", cfg.NodeURL,
		"tron_endpoint", cfg.Tron.Endpoint,
		logging.MaskField("tron_api_key", cfg.Tron.Key()),
		"poll_interval", cfg.PollInterval.Duration)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
