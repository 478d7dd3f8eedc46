package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/slotscan/solana-indexer/internal/aggregator"
	"github.com/slotscan/solana-indexer/pkg/clickhouse"
	"github.com/slotscan/solana-indexer/pkg/progress"
)

// Config holds all configuration for the indexer application.
type Config struct {
	Verbose bool

	// Upstream settings
	RPCURL  string
	Network string

	// Ingestion loop settings
	Iterations   uint64
	MaxAttempts  int
	RetryBackoff time.Duration
	MaxFailures  int

	// Storage settings
	ClickHouse     clickhouse.ClickhouseConfig
	TransfersTable string
	WatermarkTable string

	// Query API settings
	APIHost      string
	APIPort      int
	QueryTimeout time.Duration

	// Metrics settings
	MetricsHost string
	MetricsPort int
	Environment string
	Region      string

	// Progress publishing settings (disabled when no brokers configured)
	Progress progress.Config
}

// AggregatorConfig derives the ingestion loop configuration.
func (c *Config) AggregatorConfig() aggregator.Config {
	cfg := aggregator.DefaultConfig()
	cfg.Network = c.Network
	cfg.Iterations = c.Iterations
	cfg.MaxAttempts = c.MaxAttempts
	cfg.RetryBackoff = c.RetryBackoff
	cfg.MaxFailures = c.MaxFailures
	return cfg
}

// buildConfig builds a Config from CLI context flags and the environment.
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Verbose:        c.Bool("verbose"),
		RPCURL:         c.String("rpc-url"),
		Network:        c.String("network"),
		Iterations:     c.Uint64("iterations"),
		MaxAttempts:    c.Int("max-attempts"),
		RetryBackoff:   c.Duration("retry-backoff"),
		MaxFailures:    c.Int("max-failures"),
		ClickHouse:     clickhouse.Load(),
		TransfersTable: c.String("transfers-table"),
		WatermarkTable: c.String("watermark-table"),
		APIHost:        c.String("api-host"),
		APIPort:        c.Int("api-port"),
		QueryTimeout:   c.Duration("query-timeout"),
		MetricsHost:    c.String("metrics-host"),
		MetricsPort:    c.Int("metrics-port"),
		Environment:    c.String("environment"),
		Region:         c.String("region"),
		Progress:       progress.LoadConfig(),
	}

	if cfg.Iterations == 0 {
		return nil, fmt.Errorf("iterations must be greater than 0")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max-attempts must be greater than 0")
	}
	if cfg.APIPort == cfg.MetricsPort {
		return nil, fmt.Errorf("api-port and metrics-port must differ, both are %d", cfg.APIPort)
	}

	return cfg, nil
}
