package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/transfers"
)

type storeStub struct {
	records []types.TransferRecord
	err     error
	filter  transfers.Filter // last filter seen
}

func (s *storeStub) Query(ctx context.Context, filter transfers.Filter) ([]types.TransferRecord, error) {
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func newTestServer(t *testing.T, store Store) *Server {
	t.Helper()
	server, err := NewServer(zap.NewNop().Sugar(), store, "127.0.0.1", 0)
	require.NoError(t, err)
	return server
}

func get(t *testing.T, server *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestNewServer_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil, &storeStub{}, "127.0.0.1", 8080)
	require.ErrorIs(t, err, ErrInvalidLogger)

	_, err = NewServer(zap.NewNop().Sugar(), nil, "127.0.0.1", 8080)
	require.ErrorIs(t, err, ErrInvalidStore)
}

func TestHandleTransactions_NoFilters(t *testing.T) {
	t.Parallel()

	blockTime := time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)
	store := &storeStub{
		records: []types.TransferRecord{
			{
				Signature: "sig-1",
				Slot:      100,
				BlockTime: &blockTime,
				Sender:    strPtr("alice"),
				Receiver:  strPtr("bob"),
				Amount:    int64Ptr(5000),
				RawStatus: "Ok",
			},
			{
				Signature: "sig-2",
				Slot:      101,
				RawStatus: "Ok",
			},
		},
	}
	server := newTestServer(t, store)

	rec := get(t, server, "/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response []transferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response, 2)

	require.Equal(t, "sig-1", response[0].Signature)
	require.Equal(t, uint64(100), response[0].Slot)
	require.NotNil(t, response[0].BlockTime)
	require.Equal(t, "2023-01-05 10:00:00", *response[0].BlockTime)
	require.Equal(t, "alice", *response[0].Sender)
	require.Equal(t, int64(5000), *response[0].Amount)

	// Nullable fields of the sparse record serialize as null.
	require.Nil(t, response[1].BlockTime)
	require.Nil(t, response[1].Sender)
	require.Nil(t, response[1].Receiver)
	require.Nil(t, response[1].Amount)

	// No filters supplied means no constraints reach the store.
	require.Equal(t, transfers.Filter{}, store.filter)
}

func TestHandleTransactions_EmptyResult(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &storeStub{})

	rec := get(t, server, "/transactions?signature=missing")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleTransactions_AllFilters(t *testing.T) {
	t.Parallel()

	store := &storeStub{}
	server := newTestServer(t, store)

	params := url.Values{}
	params.Set("start_date", `"2023-01-05 10:00:00"`)
	params.Set("end_date", `"2023-01-06 10:00:00"`)
	params.Set("signature", "sig-1")
	params.Set("sender", "alice")
	params.Set("receiver", "bob")

	rec := get(t, server, "/transactions?"+params.Encode())
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, store.filter.StartTime)
	require.Equal(t, time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC), *store.filter.StartTime)
	require.NotNil(t, store.filter.EndTime)
	require.Equal(t, time.Date(2023, 1, 6, 10, 0, 0, 0, time.UTC), *store.filter.EndTime)
	require.Equal(t, "sig-1", *store.filter.Signature)
	require.Equal(t, "alice", *store.filter.Sender)
	require.Equal(t, "bob", *store.filter.Receiver)
}

func TestHandleTransactions_UnquotedDateAccepted(t *testing.T) {
	t.Parallel()

	store := &storeStub{}
	server := newTestServer(t, store)

	rec := get(t, server, "/transactions?start_date="+url.QueryEscape("2023-01-05 10:00:00"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.filter.StartTime)
}

func TestHandleTransactions_MalformedDate(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &storeStub{})

	rec := get(t, server, "/transactions?start_date=yesterday")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Contains(t, response["error"], "invalid filter start_date")

	rec = get(t, server, "/transactions?end_date="+url.QueryEscape(`"2023-13-40 99:00:00"`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTransactions_UnknownParamsIgnored(t *testing.T) {
	t.Parallel()

	store := &storeStub{}
	server := newTestServer(t, store)

	rec := get(t, server, "/transactions?limit=10&order=desc&sender=alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", *store.filter.Sender)
	require.Nil(t, store.filter.Signature)
}

func TestHandleTransactions_StoreErrorOpaque(t *testing.T) {
	t.Parallel()

	store := &storeStub{err: errors.New("clickhouse: dial tcp 10.0.0.5:9000: connection refused")}
	server := newTestServer(t, store)

	rec := get(t, server, "/transactions")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, "internal error", response["error"])
	require.NotContains(t, rec.Body.String(), "clickhouse")
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &storeStub{})

	rec := get(t, server, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	server, err := NewServer(zap.NewNop().Sugar(), &storeStub{}, "127.0.0.1", 18080)
	require.NoError(t, err)

	errCh := server.Start()
	time.Sleep(50 * time.Millisecond)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://127.0.0.1:18080/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	default:
	}
}
