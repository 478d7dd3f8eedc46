package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/slotscan/solana-indexer/internal/types"
)

// mapToLedgerBlock converts the RPC block payload into the internal
// representation. Transactions whose envelope cannot be decoded are carried
// with signatures only; the extractor decides what to keep.
func mapToLedgerBlock(slot uint64, block *rpc.GetBlockResult) *types.LedgerBlock {
	out := &types.LedgerBlock{
		Slot:         slot,
		Blockhash:    block.Blockhash.String(),
		ParentSlot:   block.ParentSlot,
		Transactions: make([]*types.LedgerTransaction, 0, len(block.Transactions)),
	}
	if block.BlockTime != nil {
		t := block.BlockTime.Time().UTC()
		out.BlockTime = &t
	}

	for i := range block.Transactions {
		out.Transactions = append(out.Transactions, mapTransaction(&block.Transactions[i]))
	}
	return out
}

func mapTransaction(txMeta *rpc.TransactionWithMeta) *types.LedgerTransaction {
	lt := &types.LedgerTransaction{}

	if txMeta.Meta != nil {
		lt.PreBalances = txMeta.Meta.PreBalances
		lt.PostBalances = txMeta.Meta.PostBalances
		if txMeta.Meta.Err == nil {
			lt.Status = "Ok"
		} else {
			lt.Status = fmt.Sprintf("%v", txMeta.Meta.Err)
		}
	}

	tx, err := txMeta.GetTransaction()
	if err != nil || tx == nil {
		return lt
	}

	lt.Signatures = make([]string, 0, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		lt.Signatures = append(lt.Signatures, sig.String())
	}
	lt.AccountKeys = make([]string, 0, len(tx.Message.AccountKeys))
	for _, key := range tx.Message.AccountKeys {
		lt.AccountKeys = append(lt.AccountKeys, key.String())
	}
	return lt
}
