package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

// runFlags returns all CLI flags for the run command.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
		},
		&cli.StringFlag{
			Name:     "rpc-url",
			Aliases:  []string{"r"},
			Usage:    "The ledger RPC endpoint to fetch slots and blocks from",
			EnvVars:  []string{"RPC_URL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "network",
			Aliases: []string{"n"},
			Usage:   "Network label used to key the watermark and progress events",
			EnvVars: []string{"NETWORK"},
			Value:   "mainnet-beta",
		},
		&cli.Uint64Flag{
			Name:    "iterations",
			Aliases: []string{"i"},
			Usage:   "Number of slots to persist before stopping",
			EnvVars: []string{"ITERATIONS"},
			Value:   100,
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Aliases: []string{"a"},
			Usage:   "Maximum fetch attempts per slot before giving up on it",
			EnvVars: []string{"MAX_ATTEMPTS"},
			Value:   3,
		},
		&cli.DurationFlag{
			Name:    "retry-backoff",
			Usage:   "Backoff duration between fetch attempts",
			EnvVars: []string{"RETRY_BACKOFF"},
			Value:   500 * time.Millisecond,
		},
		&cli.IntFlag{
			Name:    "max-failures",
			Aliases: []string{"f"},
			Usage:   "Consecutive given-up slots tolerated before aborting",
			EnvVars: []string{"MAX_FAILURES"},
			Value:   5,
		},
		&cli.StringFlag{
			Name:    "transfers-table",
			Usage:   "ClickHouse table storing transfer records",
			EnvVars: []string{"TRANSFERS_TABLE"},
			Value:   "transfers",
		},
		&cli.StringFlag{
			Name:    "watermark-table",
			Usage:   "ClickHouse table storing the ingestion watermark",
			EnvVars: []string{"WATERMARK_TABLE"},
			Value:   "watermarks",
		},
		&cli.StringFlag{
			Name:    "api-host",
			Usage:   "Host for the query API server",
			EnvVars: []string{"API_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "api-port",
			Usage:   "Port for the query API server",
			EnvVars: []string{"API_PORT"},
			Value:   8080,
		},
		&cli.DurationFlag{
			Name:    "query-timeout",
			Usage:   "Per-request timeout for store queries",
			EnvVars: []string{"QUERY_TIMEOUT"},
			Value:   10 * time.Second,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for the metrics server",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port for the metrics server",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Deployment environment label for metrics",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Cloud region label for metrics",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
	}
}
