// Package watermark persists the ingestion resume point in ClickHouse.
package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/slotscan/solana-indexer/pkg/clickhouse"
)

// Repository stores one watermark row per network. Write is atomic (a single
// row insert); Read reports absence rather than failing so a fresh deployment
// can start from the chain tip.
type Repository interface {
	Initialize(ctx context.Context) error
	// Write persists slot as the highest fully processed slot for network.
	Write(ctx context.Context, network string, slot uint64) error
	// Read retrieves the watermark for network. exists is false when no
	// watermark has ever been written.
	Read(ctx context.Context, network string) (slot uint64, exists bool, err error)
}

type repository struct {
	client    clickhouse.Client
	tableName string
}

var _ Repository = (*repository)(nil)

// NewRepository creates the watermark repository and initializes its table.
func NewRepository(ctx context.Context, client clickhouse.Client, tableName string) (Repository, error) {
	repo := &repository{client: client, tableName: tableName}
	if err := repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to create watermarks table: %w", err)
	}
	return repo, nil
}

// Initialize ensures the watermarks table exists. Idempotent.
func (r *repository) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			network String,
			highest_processed_slot UInt64,
			updated_at Int64
		)
		ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY network
	`, r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create watermarks table: %w", err)
	}
	return nil
}

func (r *repository) Write(ctx context.Context, network string, slot uint64) error {
	w := &Watermark{
		Network:   network,
		Slot:      slot,
		UpdatedAt: time.Now().UnixNano(),
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (network, highest_processed_slot, updated_at) VALUES (?, ?, ?)",
		r.tableName,
	)
	if err := r.client.Conn().Exec(ctx, query, w.Network, w.Slot, w.UpdatedAt); err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	return nil
}

func (r *repository) Read(ctx context.Context, network string) (uint64, bool, error) {
	var w Watermark
	query := fmt.Sprintf(
		"SELECT network, highest_processed_slot, updated_at FROM %s FINAL WHERE network = ?",
		r.tableName,
	)
	err := r.client.Conn().
		QueryRow(ctx, query, network).
		Scan(&w.Network, &w.Slot, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return w.Slot, true, nil
}
