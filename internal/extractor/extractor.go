// Package extractor turns normalized block payloads into transfer records.
// It is pure: no I/O, no clocks, deterministic output order.
package extractor

import (
	"github.com/slotscan/solana-indexer/internal/types"
)

// Parse extracts one transfer record per transaction in the block, in block
// order. Records with an unresolvable sender, receiver or amount keep those
// fields null instead of being dropped; query filters simply never match a
// null field. A signature appearing more than once within the block is kept
// only at its first occurrence.
func Parse(block *types.LedgerBlock) []types.TransferRecord {
	records := make([]types.TransferRecord, 0, len(block.Transactions))
	seen := make(map[string]struct{}, len(block.Transactions))

	for _, tx := range block.Transactions {
		if len(tx.Signatures) == 0 {
			// Without a signature there is no identity to persist under.
			continue
		}
		sig := tx.Signatures[0]
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}

		record := types.TransferRecord{
			Signature: sig,
			Slot:      block.Slot,
			RawStatus: tx.Status,
		}
		if block.BlockTime != nil {
			t := *block.BlockTime
			record.BlockTime = &t
		}
		if len(tx.AccountKeys) > 0 {
			sender := tx.AccountKeys[0]
			record.Sender = &sender
		}
		if len(tx.AccountKeys) > 1 {
			receiver := tx.AccountKeys[1]
			record.Receiver = &receiver
		}
		if amount, ok := feePayerDelta(tx); ok {
			record.Amount = &amount
		}

		records = append(records, record)
	}
	return records
}

// feePayerDelta is the lamport balance delta of the fee-payer account
// (pre - post), the amount that left the sender including fees.
func feePayerDelta(tx *types.LedgerTransaction) (int64, bool) {
	if len(tx.PreBalances) == 0 || len(tx.PostBalances) == 0 {
		return 0, false
	}
	return int64(tx.PreBalances[0]) - int64(tx.PostBalances[0]), true
}
