package chainclient

import (
	"context"
	"errors"

	"github.com/slotscan/solana-indexer/internal/types"
)

// Categorized upstream failures. Callers branch on these with errors.Is to pick
// a retry policy; anything not wrapping one of them is unrecoverable.
var (
	// ErrSlotSkipped means the slot produced no block (skipped or pruned).
	// Expected during normal operation, not an error condition.
	ErrSlotSkipped = errors.New("slot skipped")

	// ErrSlotNotAvailable means the slot sits at or beyond the finalized tip
	// and its block has not been produced yet. Retry the same slot later.
	ErrSlotNotAvailable = errors.New("slot not yet available")

	// ErrRateLimited means the upstream throttled the request. Transient;
	// retry after backoff.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrUpstreamUnavailable covers network and protocol failures. Transient;
	// retry after backoff.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// LedgerClient is the capability interface over the upstream ledger node. Both
// operations are read-only and idempotent.
type LedgerClient interface {
	// LatestSlot returns the most recent finalized slot at the tip.
	LatestSlot(ctx context.Context) (uint64, error)

	// BlockBySlot fetches the confirmed block at the given slot. Unproduced
	// slots yield ErrSlotSkipped; slots past the tip yield ErrSlotNotAvailable;
	// throttling yields ErrRateLimited; other transient failures yield
	// ErrUpstreamUnavailable.
	BlockBySlot(ctx context.Context, slot uint64) (*types.LedgerBlock, error)
}
