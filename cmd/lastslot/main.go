// Command lastslot prints the stored watermark and the upstream tip for a
// network, so operators can see how far behind the indexer is.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slotscan/solana-indexer/internal/chainclient/solana"
	"github.com/slotscan/solana-indexer/pkg/clickhouse"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/watermark"
)

var rootCmd = &cobra.Command{
	Use:   "lastslot",
	Short: "Print the stored watermark and the latest upstream slot",
	Long:  `Print the stored watermark and the latest upstream slot for a network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, _ := zap.NewProduction()
		defer log.Sync() //nolint:errcheck // best-effort flush
		sugar := log.Sugar()

		rpcURL, err := cmd.Flags().GetString("rpc-url")
		if err != nil {
			return fmt.Errorf("failed to get rpc url: %w", err)
		}
		network, err := cmd.Flags().GetString("network")
		if err != nil {
			return fmt.Errorf("failed to get network: %w", err)
		}
		tableName, err := cmd.Flags().GetString("watermark-table")
		if err != nil {
			return fmt.Errorf("failed to get watermark table: %w", err)
		}
		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return fmt.Errorf("failed to get timeout: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		chClient, err := clickhouse.New(clickhouse.Load(), sugar)
		if err != nil {
			return fmt.Errorf("failed to create ClickHouse client: %w", err)
		}
		defer chClient.Close()

		repo, err := watermark.NewRepository(ctx, chClient, tableName)
		if err != nil {
			return fmt.Errorf("failed to create watermark repository: %w", err)
		}

		slot, exists, err := repo.Read(ctx, network)
		if err != nil {
			return fmt.Errorf("failed to read watermark: %w", err)
		}
		if exists {
			fmt.Printf("watermark: %d\n", slot)
		} else {
			fmt.Println("watermark: none")
		}

		if rpcURL != "" {
			client := solana.New(rpcURL)
			defer client.Close()

			tip, err := client.LatestSlot(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch latest slot: %w", err)
			}
			fmt.Printf("upstream tip: %d\n", tip)
			if exists {
				fmt.Printf("lag: %d\n", tip-slot)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.Flags().StringP("rpc-url", "r", "", "The ledger RPC endpoint; omit to skip the upstream tip")
	rootCmd.Flags().StringP("network", "n", "mainnet-beta", "Network label the watermark is keyed by")
	rootCmd.Flags().StringP("watermark-table", "T", "watermarks", "ClickHouse table storing the watermark")
	rootCmd.Flags().DurationP("timeout", "t", 10*time.Second, "Overall timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
