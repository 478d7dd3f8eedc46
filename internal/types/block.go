package types

import "time"

// LedgerBlock is the normalized payload of a confirmed block fetched from the
// upstream ledger node. The chain client maps the wire representation into this
// form so the rest of the pipeline never sees RPC types.
type LedgerBlock struct {
	Slot         uint64               `json:"slot"`
	Blockhash    string               `json:"blockhash"`
	ParentSlot   uint64               `json:"parentSlot"`
	BlockTime    *time.Time           `json:"blockTime"`
	Transactions []*LedgerTransaction `json:"transactions"`
}

// LedgerTransaction carries the subset of a ledger transaction the extractor
// needs. AccountKeys preserves upstream ordering: index 0 is the fee payer.
type LedgerTransaction struct {
	Signatures   []string `json:"signatures"`
	AccountKeys  []string `json:"accountKeys"`
	PreBalances  []uint64 `json:"preBalances"`
	PostBalances []uint64 `json:"postBalances"`
	Status       string   `json:"status"`
}
