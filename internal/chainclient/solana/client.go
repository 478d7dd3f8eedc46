package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/slotscan/solana-indexer/internal/chainclient"
	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/metrics"
)

// Client implements chainclient.LedgerClient over the Solana JSON-RPC API.
type Client struct {
	rpc     *rpc.Client
	metrics *metrics.Metrics // nil if metrics disabled
}

var _ chainclient.LedgerClient = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithMetrics enables metrics collection for the client.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a ledger client talking to the given RPC endpoint.
func New(url string, opts ...Option) *Client {
	client := &Client{
		rpc: rpc.New(url),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) LatestSlot(ctx context.Context) (uint64, error) {
	const method = "getSlot"
	start := time.Now()

	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentFinalized)
	c.metrics.RecordRPCCall(method, err, time.Since(start).Seconds())

	if err != nil {
		return 0, categorize(fmt.Errorf("get latest slot: %w", err), err)
	}
	return slot, nil
}

func (c *Client) BlockBySlot(ctx context.Context, slot uint64) (*types.LedgerBlock, error) {
	const method = "getBlock"
	start := time.Now()

	c.metrics.IncRPCInFlight()
	defer c.metrics.DecRPCInFlight()

	maxVersion := rpc.MaxSupportedTransactionVersion1
	includeRewards := false
	block, err := c.rpc.GetBlockWithOpts(ctx, slot, &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		TransactionDetails:             rpc.TransactionDetailsFull,
		Rewards:                        &includeRewards,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	c.metrics.RecordRPCCall(method, err, time.Since(start).Seconds())

	if err != nil {
		return nil, categorize(fmt.Errorf("get block for slot %d: %w", slot, err), err)
	}
	return mapToLedgerBlock(slot, block), nil
}

// Close releases the underlying RPC transport.
func (c *Client) Close() error {
	return c.rpc.Close()
}
