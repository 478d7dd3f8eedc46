package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/slotscan/solana-indexer/internal/aggregator"
	"github.com/slotscan/solana-indexer/internal/api"
	"github.com/slotscan/solana-indexer/internal/chainclient/solana"
	"github.com/slotscan/solana-indexer/pkg/clickhouse"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/transfers"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/watermark"
	"github.com/slotscan/solana-indexer/pkg/metrics"
	"github.com/slotscan/solana-indexer/pkg/progress"
	"github.com/slotscan/solana-indexer/pkg/utils"
)

const shutdownTimeout = 5 * time.Second

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"rpcURL", cfg.RPCURL,
		"network", cfg.Network,
		"iterations", cfg.Iterations,
		"maxAttempts", cfg.MaxAttempts,
		"retryBackoff", cfg.RetryBackoff,
		"maxFailures", cfg.MaxFailures,
		"clickhouseAddresses", cfg.ClickHouse.Addresses,
		"clickhouseDatabase", cfg.ClickHouse.Database,
		"transfersTable", cfg.TransfersTable,
		"watermarkTable", cfg.WatermarkTable,
		"apiHost", cfg.APIHost,
		"apiPort", cfg.APIPort,
		"queryTimeout", cfg.QueryTimeout,
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"progressEnabled", cfg.Progress.Enabled(),
		"progressTopic", cfg.Progress.Topic,
	)

	// Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Network:     cfg.Network,
		Environment: cfg.Environment,
		Region:      cfg.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.MetricsHost, cfg.MetricsPort, registry)
	metricsErrCh := metricsServer.Start()
	sugar.Infof("metrics server listening on http://%s/metrics", metricsServer.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chClient, err := clickhouse.New(cfg.ClickHouse, sugar)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer chClient.Close()
	sugar.Info("ClickHouse client created successfully")

	transfersRepo, err := transfers.NewRepository(ctx, chClient, cfg.TransfersTable)
	if err != nil {
		return fmt.Errorf("failed to create transfers repository: %w", err)
	}
	sugar.Infow("transfers table ready", "tableName", cfg.TransfersTable)

	watermarkRepo, err := watermark.NewRepository(ctx, chClient, cfg.WatermarkTable)
	if err != nil {
		return fmt.Errorf("failed to create watermark repository: %w", err)
	}
	sugar.Infow("watermark table ready", "tableName", cfg.WatermarkTable)

	ledgerClient := solana.New(cfg.RPCURL, solana.WithMetrics(m))
	defer ledgerClient.Close()

	agg, err := aggregator.New(sugar, ledgerClient, transfersRepo, watermarkRepo,
		cfg.AggregatorConfig(), aggregator.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	apiServer, err := api.NewServer(sugar, transfersRepo, cfg.APIHost, cfg.APIPort,
		api.WithMetrics(m), api.WithQueryTimeout(cfg.QueryTimeout))
	if err != nil {
		return fmt.Errorf("failed to create query api server: %w", err)
	}
	apiErrCh := apiServer.Start()
	sugar.Infof("query api listening on http://%s/transactions", apiServer.Addr())

	var publisher *progress.Publisher
	if cfg.Progress.Enabled() {
		publisher, err = progress.NewPublisher(ctx, cfg.Progress, sugar, progress.WithMetrics(m))
		if err != nil {
			return fmt.Errorf("failed to create progress publisher: %w", err)
		}
		defer publisher.Close()

		if err := publisher.EnsureTopic(ctx); err != nil {
			return fmt.Errorf("failed to ensure progress topic exists: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return agg.Run(gctx)
	})

	// Forward committed slots to the progress publisher. Exits when the
	// aggregator closes its progress channel.
	g.Go(func() error {
		for slot := range agg.Progress() {
			if publisher == nil {
				continue
			}
			err := publisher.Publish(gctx, progress.Event{
				Network:     cfg.Network,
				Slot:        slot,
				CommittedAt: time.Now().UTC(),
			})
			if err != nil && gctx.Err() == nil {
				sugar.Warnw("failed to publish progress event", "slot", slot, "error", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case err := <-metricsErrCh:
			return err
		case err := <-apiErrCh:
			return err
		}
	})

	if publisher != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case err, ok := <-publisher.Errors():
				if !ok {
					return nil
				}
				return err
			}
		})
	}

	err = g.Wait()

	sugar.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := apiServer.Shutdown(shutdownCtx); shutdownErr != nil {
		sugar.Warnw("query api shutdown error", "error", shutdownErr)
	}
	if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		sugar.Warnw("metrics server shutdown error", "error", shutdownErr)
	}

	if errors.Is(err, context.Canceled) {
		sugar.Info("exiting due to context cancellation")
		return nil
	}
	if err != nil {
		sugar.Errorw("run failed", "error", err)
		return err
	}

	sugar.Info("shutdown complete")
	return nil
}
