package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotscan/solana-indexer/internal/types"
)

func TestParse_FullTransaction(t *testing.T) {
	t.Parallel()
	bt := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	block := &types.LedgerBlock{
		Slot:      100,
		BlockTime: &bt,
		Transactions: []*types.LedgerTransaction{
			{
				Signatures:   []string{"SIG1"},
				AccountKeys:  []string{"A", "B"},
				PreBalances:  []uint64{10_000, 500},
				PostBalances: []uint64{4_500, 6_000},
				Status:       "Ok",
			},
		},
	}

	records := Parse(block)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "SIG1", r.Signature)
	assert.Equal(t, uint64(100), r.Slot)
	require.NotNil(t, r.BlockTime)
	assert.True(t, r.BlockTime.Equal(bt))
	require.NotNil(t, r.Sender)
	assert.Equal(t, "A", *r.Sender)
	require.NotNil(t, r.Receiver)
	assert.Equal(t, "B", *r.Receiver)
	require.NotNil(t, r.Amount)
	assert.Equal(t, int64(5_500), *r.Amount)
	assert.Equal(t, "Ok", r.RawStatus)
}

func TestParse_KeepsRecordsWithMissingParties(t *testing.T) {
	t.Parallel()
	block := &types.LedgerBlock{
		Slot: 42,
		Transactions: []*types.LedgerTransaction{
			{Signatures: []string{"SIG-NO-KEYS"}},
			{Signatures: []string{"SIG-ONE-KEY"}, AccountKeys: []string{"ONLY"}},
		},
	}

	records := Parse(block)
	require.Len(t, records, 2)

	assert.Nil(t, records[0].Sender)
	assert.Nil(t, records[0].Receiver)
	assert.Nil(t, records[0].Amount)
	assert.Nil(t, records[0].BlockTime)

	require.NotNil(t, records[1].Sender)
	assert.Equal(t, "ONLY", *records[1].Sender)
	assert.Nil(t, records[1].Receiver)
}

func TestParse_DropsUnsignedTransactions(t *testing.T) {
	t.Parallel()
	block := &types.LedgerBlock{
		Slot: 7,
		Transactions: []*types.LedgerTransaction{
			{AccountKeys: []string{"A", "B"}},
		},
	}
	assert.Empty(t, Parse(block))
}

func TestParse_DeduplicatesSignaturesWithinBlock(t *testing.T) {
	t.Parallel()
	block := &types.LedgerBlock{
		Slot: 9,
		Transactions: []*types.LedgerTransaction{
			{Signatures: []string{"DUP"}, AccountKeys: []string{"FIRST", "B"}},
			{Signatures: []string{"DUP"}, AccountKeys: []string{"SECOND", "C"}},
			{Signatures: []string{"OTHER"}, AccountKeys: []string{"D", "E"}},
		},
	}

	records := Parse(block)
	require.Len(t, records, 2)
	assert.Equal(t, "DUP", records[0].Signature)
	assert.Equal(t, "FIRST", *records[0].Sender)
	assert.Equal(t, "OTHER", records[1].Signature)
}

func TestParse_OrderFollowsBlockOrder(t *testing.T) {
	t.Parallel()
	block := &types.LedgerBlock{
		Slot: 3,
		Transactions: []*types.LedgerTransaction{
			{Signatures: []string{"S1"}},
			{Signatures: []string{"S2"}},
			{Signatures: []string{"S3"}},
		},
	}

	records := Parse(block)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"S1", "S2", "S3"},
		[]string{records[0].Signature, records[1].Signature, records[2].Signature})
}

func TestParse_EmptyBlock(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Parse(&types.LedgerBlock{Slot: 1}))
}
