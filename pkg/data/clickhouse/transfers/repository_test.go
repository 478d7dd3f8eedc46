package transfers

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/clickhouse/mocks"
	"github.com/slotscan/solana-indexer/pkg/clickhouse/testutils"
)

func strPtr(s string) *string        { return &s }
func intPtr(i int64) *int64          { return &i }
func timePtr(t time.Time) *time.Time { return &t }

func newTestRepo(t *testing.T, conn *mocks.MockConn) Repository {
	t.Helper()
	conn.
		On("Exec", mock.Anything, mock.MatchedBy(func(q string) bool {
			return strings.Contains(q, "CREATE TABLE IF NOT EXISTS transfers")
		})).
		Return(nil)
	repo, err := NewRepository(t.Context(), testutils.NewTestClient(conn), "transfers")
	require.NoError(t, err)
	return repo
}

func selectBySignature(q string) bool {
	return strings.Contains(q, "FROM transfers FINAL") && strings.Contains(q, "signature = ?")
}

func insertQuery(q string) bool {
	return strings.Contains(q, "INSERT INTO transfers")
}

func TestUpsert_InsertsNewRecord(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	conn.
		On("QueryRow", mock.Anything, mock.MatchedBy(selectBySignature), "SIG1").
		Return(&mocks.Row{ScanErr: sql.ErrNoRows})

	bt := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	record := &types.TransferRecord{
		Signature: "SIG1",
		Slot:      100,
		BlockTime: &bt,
		Sender:    strPtr("A"),
		Receiver:  strPtr("B"),
		Amount:    intPtr(5000),
		RawStatus: "Ok",
	}
	conn.
		On("Exec", mock.Anything, mock.MatchedBy(insertQuery),
			"SIG1", uint64(100), record.BlockTime, record.Sender, record.Receiver, record.Amount, "Ok", uint32(1)).
		Return(nil)

	require.NoError(t, repo.Upsert(t.Context(), record))
	conn.AssertExpectations(t)
}

func TestUpsert_IdenticalReinsertWritesNothing(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	bt := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	conn.
		On("QueryRow", mock.Anything, mock.MatchedBy(selectBySignature), "SIG1").
		Return(&mocks.Row{Values: []interface{}{
			"SIG1", uint64(100), timePtr(bt), strPtr("A"), strPtr("B"), intPtr(5000), "Ok", uint32(1),
		}})

	record := &types.TransferRecord{
		Signature: "SIG1",
		Slot:      100,
		BlockTime: &bt,
		Sender:    strPtr("A"),
		Receiver:  strPtr("B"),
		Amount:    intPtr(5000),
		RawStatus: "Ok",
	}
	require.NoError(t, repo.Upsert(t.Context(), record))

	// No INSERT may have happened.
	conn.AssertNotCalled(t, "Exec", mock.Anything, mock.MatchedBy(insertQuery),
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpsert_MergeFillsNullsAndBumpsVersion(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	// Stored row has no receiver and no amount yet.
	bt := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	conn.
		On("QueryRow", mock.Anything, mock.MatchedBy(selectBySignature), "SIG1").
		Return(&mocks.Row{Values: []interface{}{
			"SIG1", uint64(100), timePtr(bt), strPtr("A"), nil, nil, "Ok", uint32(2),
		}})

	conn.
		On("Exec", mock.Anything, mock.MatchedBy(insertQuery),
			"SIG1", uint64(100), mock.Anything, mock.Anything, mock.Anything, mock.Anything, "Ok", uint32(3)).
		Run(func(args mock.Arguments) {
			receiver := args.Get(6).(*string)
			amount := args.Get(7).(*int64)
			assert.Equal(t, "B", *receiver)
			assert.Equal(t, int64(5000), *amount)
		}).
		Return(nil)

	record := &types.TransferRecord{
		Signature: "SIG1",
		Slot:      100,
		BlockTime: &bt,
		Sender:    strPtr("A"),
		Receiver:  strPtr("B"),
		Amount:    intPtr(5000),
		RawStatus: "Ok",
	}
	require.NoError(t, repo.Upsert(t.Context(), record))
	conn.AssertExpectations(t)
}

func TestUpsert_ConflictLeavesStoredRowUnchanged(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	conn.
		On("QueryRow", mock.Anything, mock.MatchedBy(selectBySignature), "SIG1").
		Return(&mocks.Row{Values: []interface{}{
			"SIG1", uint64(100), nil, strPtr("A"), nil, nil, "Ok", uint32(1),
		}})

	record := &types.TransferRecord{
		Signature: "SIG1",
		Slot:      100,
		Sender:    strPtr("X"),
	}
	err := repo.Upsert(t.Context(), record)
	require.ErrorIs(t, err, types.ErrDataConflict)

	conn.AssertNotCalled(t, "Exec", mock.Anything, mock.MatchedBy(insertQuery),
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQuery_NoFiltersReturnsAllOrdered(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	early := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC)
	rows := mocks.NewRows(
		[]string{"signature", "slot", "block_time", "sender", "receiver", "amount", "raw_status"},
		[][]interface{}{
			{"S1", uint64(10), timePtr(early), strPtr("A"), strPtr("B"), intPtr(1), "Ok"},
			{"S2", uint64(20), timePtr(late), nil, nil, nil, "Ok"},
		},
	)
	conn.
		On("Query", mock.Anything, mock.MatchedBy(func(q string) bool {
			return strings.Contains(q, "FROM transfers FINAL") &&
				!strings.Contains(q, "WHERE") &&
				strings.Contains(q, "ORDER BY block_time ASC")
		})).
		Return(rows, nil)

	records, err := repo.Query(t.Context(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "S1", records[0].Signature)
	assert.Equal(t, "S2", records[1].Signature)
	assert.Nil(t, records[1].Sender)
}

func TestQuery_PassesFilterArgsInOrder(t *testing.T) {
	t.Parallel()
	conn := &mocks.MockConn{}
	repo := newTestRepo(t, conn)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC)
	conn.
		On("Query", mock.Anything, mock.MatchedBy(func(q string) bool {
			return strings.Contains(q, "block_time >= ?") &&
				strings.Contains(q, "block_time <= ?") &&
				strings.Contains(q, "sender = ?")
		}), start, end, "A").
		Return(mocks.NewRows(nil, nil), nil)

	records, err := repo.Query(t.Context(), Filter{
		StartTime: &start,
		EndTime:   &end,
		Sender:    strPtr("A"),
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	conn.AssertExpectations(t)
}

func TestBuildQuery_Conjunction(t *testing.T) {
	t.Parallel()
	r := &repository{tableName: "transfers"}

	query, args := r.buildQuery(Filter{
		Signature: strPtr("SIG1"),
		Receiver:  strPtr("B"),
	})
	assert.Contains(t, query, "WHERE signature = ? AND receiver = ?")
	assert.Equal(t, []interface{}{"SIG1", "B"}, args)

	query, args = r.buildQuery(Filter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
	assert.Contains(t, query, "ORDER BY block_time ASC, signature ASC")
}
