package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "indexer",
		Usage: "Index transfer records from a ledger RPC endpoint into ClickHouse and serve them over HTTP",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the ingestion loop and the query API",
				Flags:  runFlags(),
				Action: run,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
