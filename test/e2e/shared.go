//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/slotscan/solana-indexer/internal/chainclient"
	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/clickhouse"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/watermark"
	"github.com/slotscan/solana-indexer/pkg/utils"
	"go.uber.org/zap"
)

// newClickhouseClient connects to the ClickHouse instance configured via the
// environment (optionally from a .env file) and skips the test when none is
// reachable.
func newClickhouseClient(t *testing.T) clickhouse.Client {
	t.Helper()

	_ = godotenv.Load("../../.env")

	sugar, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)

	client, err := clickhouse.New(clickhouse.Load(), sugar)
	if err != nil {
		t.Skipf("clickhouse not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testSugar(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

// uniqueTable returns a per-run table name so concurrent test runs do not
// interfere.
func uniqueTable(prefix string) string {
	return fmt.Sprintf("%s_e2e_%d", prefix, time.Now().UnixNano())
}

func dropTable(t *testing.T, client clickhouse.Client, tableName string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = client.Conn().Exec(ctx, "DROP TABLE IF EXISTS "+tableName)
}

// waitForWatermark polls until the watermark reaches expected or the deadline
// passes.
func waitForWatermark(t *testing.T, ctx context.Context, repo watermark.Repository, network string, expected uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		slot, exists, err := repo.Read(ctx, network)
		if err == nil && exists && slot >= expected {
			return
		}
		if time.Now().After(deadline) {
			require.NoError(t, err, "read watermark failed")
			require.True(t, exists, "watermark missing")
			require.GreaterOrEqual(t, slot, expected, "watermark behind")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// scriptedClient serves canned blocks per slot; unscripted slots report
// ErrSlotSkipped.
type scriptedClient struct {
	tip    uint64
	blocks map[uint64]*types.LedgerBlock
}

func (c *scriptedClient) LatestSlot(ctx context.Context) (uint64, error) {
	return c.tip, nil
}

func (c *scriptedClient) BlockBySlot(ctx context.Context, slot uint64) (*types.LedgerBlock, error) {
	if block, ok := c.blocks[slot]; ok {
		return block, nil
	}
	return nil, fmt.Errorf("slot %d: %w", slot, chainclient.ErrSlotSkipped)
}

var _ chainclient.LedgerClient = (*scriptedClient)(nil)
