// Package transfers persists normalized transfer records in ClickHouse.
//
// The table is a ReplacingMergeTree keyed by signature with an explicit
// version column: an upsert never mutates rows in place, it inserts a new
// version and lets the engine collapse duplicates. Reads go through FINAL so
// a query always observes exactly one, fully written row per signature, and
// in-flight inserts never block readers.
package transfers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/clickhouse"
)

// Repository provides idempotent writes and filtered reads of transfer records.
type Repository interface {
	CreateTableIfNotExists(ctx context.Context) error
	// Upsert inserts the record if its signature is new; otherwise it merges,
	// filling only fields that are currently null. A conflicting non-null
	// overwrite returns an error wrapping types.ErrDataConflict and leaves the
	// stored record unchanged.
	Upsert(ctx context.Context, record *types.TransferRecord) error
	// Query returns records matching the conjunction of all set filters,
	// ordered ascending by block time.
	Query(ctx context.Context, filter Filter) ([]types.TransferRecord, error)
}

// Filter restricts a Query. Nil fields impose no constraint; the time range
// is inclusive on both ends.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Signature *string
	Sender    *string
	Receiver  *string
}

type repository struct {
	client    clickhouse.Client
	tableName string
}

var _ Repository = (*repository)(nil)

// NewRepository creates the transfers repository and initializes its table.
func NewRepository(ctx context.Context, client clickhouse.Client, tableName string) (Repository, error) {
	repo := &repository{
		client:    client,
		tableName: tableName,
	}
	if err := repo.CreateTableIfNotExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize transfers table: %w", err)
	}
	return repo, nil
}

// CreateTableIfNotExists creates the transfers table if it doesn't exist.
func (r *repository) CreateTableIfNotExists(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			signature String,
			slot UInt64,
			block_time Nullable(DateTime64(0, 'UTC')),
			sender Nullable(String),
			receiver Nullable(String),
			amount Nullable(Int64),
			raw_status String,
			version UInt32
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY signature
		SETTINGS index_granularity = 8192
	`, r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create transfers table: %w", err)
	}
	return nil
}

func (r *repository) Upsert(ctx context.Context, record *types.TransferRecord) error {
	stored, version, err := r.readBySignature(ctx, record.Signature)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.insert(ctx, record, 1)
		}
		return fmt.Errorf("failed to read transfer %s: %w", record.Signature, err)
	}

	changed, err := stored.Merge(record)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", record.Signature, err)
	}
	if !changed {
		// Byte-identical re-insert; nothing to write.
		return nil
	}
	return r.insert(ctx, stored, version+1)
}

func (r *repository) insert(ctx context.Context, record *types.TransferRecord, version uint32) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (signature, slot, block_time, sender, receiver, amount, raw_status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.tableName)

	err := r.client.Conn().Exec(ctx, query,
		record.Signature,
		record.Slot,
		record.BlockTime,
		record.Sender,
		record.Receiver,
		record.Amount,
		record.RawStatus,
		version,
	)
	if err != nil {
		return fmt.Errorf("failed to write transfer %s: %w", record.Signature, err)
	}
	return nil
}

func (r *repository) readBySignature(ctx context.Context, signature string) (*types.TransferRecord, uint32, error) {
	query := fmt.Sprintf(`
		SELECT signature, slot, block_time, sender, receiver, amount, raw_status, version
		FROM %s FINAL
		WHERE signature = ?
	`, r.tableName)

	var record types.TransferRecord
	var version uint32
	err := r.client.Conn().QueryRow(ctx, query, signature).Scan(
		&record.Signature,
		&record.Slot,
		&record.BlockTime,
		&record.Sender,
		&record.Receiver,
		&record.Amount,
		&record.RawStatus,
		&version,
	)
	if err != nil {
		return nil, 0, err
	}
	return &record, version, nil
}

func (r *repository) Query(ctx context.Context, filter Filter) ([]types.TransferRecord, error) {
	query, args := r.buildQuery(filter)
	rows, err := r.client.Conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	records := make([]types.TransferRecord, 0)
	for rows.Next() {
		var record types.TransferRecord
		err := rows.Scan(
			&record.Signature,
			&record.Slot,
			&record.BlockTime,
			&record.Sender,
			&record.Receiver,
			&record.Amount,
			&record.RawStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading transfer rows: %w", err)
	}
	return records, nil
}

// buildQuery assembles the conjunctive WHERE clause. Null filter fields add
// no condition; NULL columns never match an equality or range condition, so
// partially extracted records fall out of filtered results naturally.
func (r *repository) buildQuery(filter Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartTime != nil {
		conditions = append(conditions, "block_time >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "block_time <= ?")
		args = append(args, *filter.EndTime)
	}
	if filter.Signature != nil {
		conditions = append(conditions, "signature = ?")
		args = append(args, *filter.Signature)
	}
	if filter.Sender != nil {
		conditions = append(conditions, "sender = ?")
		args = append(args, *filter.Sender)
	}
	if filter.Receiver != nil {
		conditions = append(conditions, "receiver = ?")
		args = append(args, *filter.Receiver)
	}

	query := fmt.Sprintf(
		"SELECT signature, slot, block_time, sender, receiver, amount, raw_status FROM %s FINAL",
		r.tableName,
	)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY block_time ASC, signature ASC"
	return query, args
}
