package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	qhttp "insurecast/http"
	"insurecast/logging"
	"insurecast/monitoring"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimate form page",
		Long: `Loads every configured deployment, then serves the form page, health and
model listings, and Prometheus metrics until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, registry, err := opts.loadRegistry(ctx)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	for _, d := range registry.List() {
		info := d.Info()
		logger.Info("deployment loaded",
			zap.String("deployment", d.Name()),
			zap.String("type", info.Type),
			zap.String("version", info.Version),
			zap.String("scheme", string(info.Scheme)),
			zap.Int("columns", len(info.Columns)),
			zap.Int("rules", len(d.Rules())),
		)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetricsWithRegistry(promRegistry)
	metrics.SetDeployments(registry.Len())

	handler := qhttp.NewHandler(qhttp.HandlerConfig{
		Registry: registry,
		Metrics:  metrics,
		Gatherer: promRegistry,
		Logger:   logger,
		Currency: cfg.Display.Currency,
	})
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:         cfg.Http.Port,
		Timeout:      cfg.Http.Timeout,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	}, handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()

		err := server.Stop(shutdownCtx)
		registry.Close()
		metrics.SetDeployments(0)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("exiting")
	return nil
}
