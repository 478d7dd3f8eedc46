package solana

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/slotscan/solana-indexer/internal/chainclient"
)

// Upstream JSON-RPC error codes for slots without a fetchable block.
// See solana-rpc custom error codes: -32007 slot skipped, -32009 slot skipped
// in long-term storage, -32004 block not available. The first two are
// permanent; -32004 is what nodes return for slots at or beyond the finalized
// tip, so the block may still appear.
const (
	codeSlotSkipped       = -32007
	codeLongTermSkipped   = -32009
	codeBlockNotAvailable = -32004
)

// categorize wraps wrapped with the chainclient sentinel matching the raw RPC
// failure. Authentication failures stay unwrapped so callers treat them as
// fatal; everything else is a skip, a not-yet-produced slot, a throttle, or
// transient noise.
func categorize(wrapped, raw error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(raw, &rpcErr) {
		switch rpcErr.Code {
		case codeSlotSkipped, codeLongTermSkipped:
			return fmt.Errorf("%w: %s", chainclient.ErrSlotSkipped, wrapped)
		case codeBlockNotAvailable:
			return fmt.Errorf("%w: %s", chainclient.ErrSlotNotAvailable, wrapped)
		}
		return fmt.Errorf("%w: %s", chainclient.ErrUpstreamUnavailable, wrapped)
	}

	var httpErr *jsonrpc.HTTPError
	if errors.As(raw, &httpErr) {
		switch httpErr.Code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", chainclient.ErrRateLimited, wrapped)
		case http.StatusUnauthorized, http.StatusForbidden:
			// Credential problems never heal on retry.
			return wrapped
		}
		return fmt.Errorf("%w: %s", chainclient.ErrUpstreamUnavailable, wrapped)
	}

	// Transport-level failure (dial, DNS, timeout).
	return fmt.Errorf("%w: %s", chainclient.ErrUpstreamUnavailable, wrapped)
}
