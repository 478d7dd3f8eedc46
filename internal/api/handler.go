package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/data/clickhouse/transfers"
	"github.com/slotscan/solana-indexer/pkg/utils"
)

// transferResponse is the wire shape of a transfer record. Nullable fields
// serialize as JSON null.
type transferResponse struct {
	Signature string  `json:"signature"`
	Slot      uint64  `json:"slot"`
	BlockTime *string `json:"block_time"`
	Sender    *string `json:"sender"`
	Receiver  *string `json:"receiver"`
	Amount    *int64  `json:"amount"`
	Status    string  `json:"status"`
}

func toTransferResponse(record *types.TransferRecord) transferResponse {
	return transferResponse{
		Signature: record.Signature,
		Slot:      record.Slot,
		BlockTime: utils.FormatTimestamp(record.BlockTime),
		Sender:    record.Sender,
		Receiver:  record.Receiver,
		Amount:    record.Amount,
		Status:    record.RawStatus,
	}
}

// handleTransactions serves GET /transactions. Optional query parameters
// start_date, end_date (quoted "YYYY-MM-DD HH:MM:SS" literals), signature,
// sender and receiver combine conjunctively; unknown parameters are ignored
// for forward compatibility.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, err := parseFilter(r)
	if err != nil {
		s.metrics.RecordQuery(err, time.Since(start).Seconds())
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout)
	defer cancel()

	records, err := s.store.Query(ctx, filter)
	s.metrics.RecordQuery(err, time.Since(start).Seconds())
	if err != nil {
		// Storage-driver errors never reach the caller verbatim.
		s.sugar.Errorw("transfer query failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response := make([]transferResponse, 0, len(records))
	for i := range records {
		response = append(response, toTransferResponse(&records[i]))
	}
	s.respondJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck // best-effort health response
}

// parseFilter builds the store filter from query parameters. A malformed date
// literal is a client error; everything unrecognized is ignored.
func parseFilter(r *http.Request) (transfers.Filter, error) {
	var filter transfers.Filter
	params := r.URL.Query()

	if raw := params.Get("start_date"); raw != "" {
		t, err := utils.ParseTimestampLiteral(raw)
		if err != nil {
			return transfers.Filter{}, fmt.Errorf("invalid filter start_date: %w", err)
		}
		filter.StartTime = &t
	}
	if raw := params.Get("end_date"); raw != "" {
		t, err := utils.ParseTimestampLiteral(raw)
		if err != nil {
			return transfers.Filter{}, fmt.Errorf("invalid filter end_date: %w", err)
		}
		filter.EndTime = &t
	}
	if raw := params.Get("signature"); raw != "" {
		filter.Signature = &raw
	}
	if raw := params.Get("sender"); raw != "" {
		filter.Sender = &raw
	}
	if raw := params.Get("receiver"); raw != "" {
		filter.Receiver = &raw
	}

	return filter, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.sugar.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.sugar.Warnw("failed to encode error response", "error", err)
	}
}
