package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bkoehler/netverdict/internal/apiserver"
	"github.com/bkoehler/netverdict/internal/config"
	"github.com/bkoehler/netverdict/internal/engine"
	"github.com/bkoehler/netverdict/internal/lifecycle"
	"github.com/bkoehler/netverdict/internal/logging"
	"github.com/bkoehler/netverdict/internal/rules"
	"github.com/bkoehler/netverdict/internal/tracing"
)

var (
	serveConfigPath         string
	serveAPIPort            int
	serveRulesPath          string
	serveCacheSize          int
	serveTracingEnabled     bool
	serveTracingEndpoint    string
	serveTracingTLSCAPath   string
	serveTracingTLSInsecure bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the netverdict API server",
	Long: `Serve starts the HTTP API, loads the rule set, and hot-reloads it when
the file changes. Invalid rule-set edits keep the previous rule set in
effect.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML config file (optional)")
	serveCmd.Flags().IntVar(&serveAPIPort, "port", 0, "Port the API server listens on (overrides config)")
	serveCmd.Flags().StringVar(&serveRulesPath, "rules", "", "Path to the rule-set YAML file (overrides config)")
	serveCmd.Flags().IntVar(&serveCacheSize, "cache-size", -1, "Result cache size, 0 disables (overrides config)")
	serveCmd.Flags().BoolVar(&serveTracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing")
	serveCmd.Flags().StringVar(&serveTracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces (e.g., otel-collector:4317)")
	serveCmd.Flags().StringVar(&serveTracingTLSCAPath, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	serveCmd.Flags().BoolVar(&serveTracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS certificate verification (insecure)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.GetLogger("serve")

	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		TLSCAPath:   cfg.TracingTLSCAPath,
		TLSInsecure: cfg.TracingTLSInsecure,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	engineMetrics := engine.NewMetrics(registry)

	server, err := apiserver.New(apiserver.Options{
		Port:      cfg.APIPort,
		CacheSize: cfg.ResultCacheSize,
		Registry:  registry,
		Tracer:    tracingProvider.GetTracer("netverdict.api"),
	})
	if err != nil {
		return err
	}

	watcher, err := rules.NewWatcher(rules.WatcherConfig{
		FilePath:       cfg.RulesPath,
		DebounceMillis: cfg.ReloadDebounceMillis,
	}, func(rs *rules.RuleSet, report *rules.Report) error {
		server.SetEngine(engine.New(rs, engine.WithMetrics(engineMetrics)))
		return nil
	})
	if err != nil {
		return err
	}

	manager := lifecycle.NewManager()
	for _, component := range []lifecycle.Component{tracingProvider, watcher, server} {
		if err := manager.Register(component); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := manager.StartAll(gctx); err != nil {
			return err
		}
		logger.Info("netverdict serving on port %d (rules: %s)", cfg.APIPort, cfg.RulesPath)
		<-gctx.Done()
		manager.StopAll()
		return nil
	})
	return g.Wait()
}

// buildServeConfig layers defaults, the optional config file, and flag
// overrides.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if serveConfigPath != "" {
		if err := cfg.LoadFile(serveConfigPath); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("port") {
		cfg.APIPort = serveAPIPort
	}
	if cmd.Flags().Changed("rules") {
		cfg.RulesPath = serveRulesPath
	}
	if cmd.Flags().Changed("cache-size") {
		cfg.ResultCacheSize = serveCacheSize
	}
	if cmd.Flags().Changed("tracing-enabled") {
		cfg.TracingEnabled = serveTracingEnabled
	}
	if cmd.Flags().Changed("tracing-endpoint") {
		cfg.TracingEndpoint = serveTracingEndpoint
	}
	if cmd.Flags().Changed("tracing-tls-ca") {
		cfg.TracingTLSCAPath = serveTracingTLSCAPath
	}
	if cmd.Flags().Changed("tracing-tls-insecure") {
		cfg.TracingTLSInsecure = serveTracingTLSInsecure
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
