package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/slotscan/solana-indexer/internal/chainclient"
	"github.com/slotscan/solana-indexer/internal/extractor"
	"github.com/slotscan/solana-indexer/internal/types"
	"github.com/slotscan/solana-indexer/pkg/metrics"
)

// Phase describes what the ingestion loop is currently doing.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseParsing
	PhasePersisting
	PhaseBackoff
	PhaseDone
	PhaseFatal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseParsing:
		return "parsing"
	case PhasePersisting:
		return "persisting"
	case PhaseBackoff:
		return "backoff"
	case PhaseDone:
		return "done"
	case PhaseFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidLogger         = errors.New("invalid logger: must not be nil")
	ErrInvalidClient         = errors.New("invalid ledger client: must not be nil")
	ErrInvalidStore          = errors.New("invalid transfer store: must not be nil")
	ErrInvalidWatermarkStore = errors.New("invalid watermark store: must not be nil")
	ErrInvalidNetwork        = errors.New("invalid network: must not be empty")
	ErrInvalidIterations     = errors.New("invalid iterations: must be greater than 0")
	ErrInvalidMaxAttempts    = errors.New("invalid max attempts: must be greater than 0")

	// errSlotGivenUp marks a slot abandoned after exhausting fetch attempts.
	errSlotGivenUp = errors.New("slot given up after exhausted attempts")
)

// Store persists extracted transfer records.
type Store interface {
	Upsert(ctx context.Context, record *types.TransferRecord) error
}

// WatermarkStore persists the highest fully processed slot per network.
type WatermarkStore interface {
	Write(ctx context.Context, network string, slot uint64) error
	Read(ctx context.Context, network string) (slot uint64, exists bool, err error)
}

// Aggregator drives the slot traversal: fetch block, extract transfer records,
// persist them, advance the watermark. Exactly one instance runs per process;
// slots are processed strictly sequentially so the watermark always reflects a
// contiguous prefix of processed slots.
type Aggregator struct {
	sugar      *zap.SugaredLogger
	client     chainclient.LedgerClient
	store      Store
	watermarks WatermarkStore
	metrics    *metrics.Metrics // nil if metrics disabled
	cfg        Config

	phase    atomic.Int32
	progress chan uint64
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithMetrics enables metrics collection for the loop.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func New(
	sugar *zap.SugaredLogger,
	client chainclient.LedgerClient,
	store Store,
	watermarks WatermarkStore,
	cfg Config,
	opts ...Option,
) (*Aggregator, error) {
	if sugar == nil {
		return nil, ErrInvalidLogger
	}
	if client == nil {
		return nil, ErrInvalidClient
	}
	if store == nil {
		return nil, ErrInvalidStore
	}
	if watermarks == nil {
		return nil, ErrInvalidWatermarkStore
	}
	if cfg.Network == "" {
		return nil, ErrInvalidNetwork
	}
	if cfg.Iterations == 0 {
		return nil, ErrInvalidIterations
	}
	if cfg.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if cfg.ProgressBuffer <= 0 {
		cfg.ProgressBuffer = DefaultConfig().ProgressBuffer
	}

	a := &Aggregator{
		sugar:      sugar,
		client:     client,
		store:      store,
		watermarks: watermarks,
		cfg:        cfg,
		progress:   make(chan uint64, cfg.ProgressBuffer),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Progress returns the channel on which committed slot numbers are emitted.
// The channel is closed when Run returns.
func (a *Aggregator) Progress() <-chan uint64 {
	return a.progress
}

// Phase returns the loop's current phase.
func (a *Aggregator) Phase() Phase {
	return Phase(a.phase.Load())
}

func (a *Aggregator) setPhase(p Phase) {
	a.phase.Store(int32(p))
}

// Run executes the ingestion loop until the iteration budget is reached, the
// context is cancelled, or an unrecoverable error occurs. Cancellation is
// honored between cycles only and is not an error. Fatal upstream and store
// errors propagate to the caller.
func (a *Aggregator) Run(ctx context.Context) error {
	defer close(a.progress)

	target, err := a.resumeSlot(ctx)
	if err != nil {
		a.setPhase(PhaseFatal)
		return err
	}

	a.sugar.Infow("starting ingestion",
		"network", a.cfg.Network,
		"start_slot", target,
		"iterations", a.cfg.Iterations,
	)

	var completed uint64
	failureStreak := 0

	for completed < a.cfg.Iterations {
		// Cooperative stop between cycles only.
		if ctx.Err() != nil {
			a.sugar.Infow("ingestion stopped", "completed", completed, "next_slot", target)
			a.setPhase(PhaseIdle)
			return nil
		}

		start := time.Now()
		block, err := a.fetchWithRetry(ctx, target)

		switch {
		case errors.Is(err, chainclient.ErrSlotSkipped):
			// The slot was never produced. Advancing past it does not consume
			// the iteration budget.
			a.sugar.Debugw("slot skipped", "slot", target)
			a.metrics.RecordSlotSkipped(metrics.SkipReasonUnproduced)
			target++
			continue

		case errors.Is(err, chainclient.ErrSlotNotAvailable):
			// The slot sits at or beyond the finalized tip. Hold position and
			// wait for the chain to catch up instead of skipping past blocks
			// that have simply not been produced yet.
			a.sugar.Debugw("slot not yet available, waiting", "slot", target)
			a.setPhase(PhaseBackoff)
			select {
			case <-time.After(a.cfg.RetryBackoff):
			case <-ctx.Done():
				a.setPhase(PhaseIdle)
				return nil
			}
			continue

		case errors.Is(err, errSlotGivenUp):
			failureStreak++
			if a.cfg.MaxFailures > 0 && failureStreak > a.cfg.MaxFailures {
				a.setPhase(PhaseFatal)
				return fmt.Errorf("aborting after %d consecutive abandoned slots (last slot %d): %w",
					failureStreak, target, err)
			}
			a.sugar.Warnw("giving up on slot after exhausted attempts",
				"slot", target, "attempts", a.cfg.MaxAttempts, "failure_streak", failureStreak)
			a.metrics.RecordSlotSkipped(metrics.SkipReasonRetriesExhausted)
			target++
			continue

		case err != nil:
			if ctx.Err() != nil {
				a.setPhase(PhaseIdle)
				return nil
			}
			a.setPhase(PhaseFatal)
			return fmt.Errorf("unrecoverable upstream failure at slot %d: %w", target, err)
		}

		failureStreak = 0

		a.setPhase(PhaseParsing)
		records := extractor.Parse(block)

		a.setPhase(PhasePersisting)
		if err := a.persist(ctx, records); err != nil {
			a.setPhase(PhaseFatal)
			return fmt.Errorf("persisting slot %d: %w", target, err)
		}

		if err := a.watermarks.Write(ctx, a.cfg.Network, target); err != nil {
			a.setPhase(PhaseFatal)
			a.metrics.IncError(metrics.ErrTypeStore)
			return fmt.Errorf("writing watermark for slot %d: %w", target, err)
		}

		completed++
		a.metrics.RecordSlotProcessed(target, len(records), time.Since(start).Seconds())
		a.sugar.Infow("slot committed",
			"slot", target, "records", len(records), "completed", completed)
		a.emitProgress(target)

		a.setPhase(PhaseIdle)
		target++
	}

	a.setPhase(PhaseDone)
	a.sugar.Infow("iteration budget reached", "completed", completed)
	return nil
}

// resumeSlot determines the first slot to process: watermark+1 when a
// watermark exists, otherwise the current finalized tip.
func (a *Aggregator) resumeSlot(ctx context.Context) (uint64, error) {
	watermark, exists, err := a.watermarks.Read(ctx, a.cfg.Network)
	if err != nil {
		a.metrics.IncError(metrics.ErrTypeStore)
		return 0, fmt.Errorf("reading watermark: %w", err)
	}
	if exists {
		return watermark + 1, nil
	}

	tip, err := a.client.LatestSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching latest slot: %w", err)
	}
	return tip, nil
}

// fetchWithRetry fetches the block for a slot, retrying transient upstream
// failures with a context-aware backoff. ErrSlotSkipped and
// ErrSlotNotAvailable are returned immediately; errSlotGivenUp is returned
// once attempts are exhausted. Any other error is unrecoverable.
func (a *Aggregator) fetchWithRetry(ctx context.Context, slot uint64) (*types.LedgerBlock, error) {
	var lastErr error

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		a.setPhase(PhaseFetching)
		block, err := a.client.BlockBySlot(ctx, slot)
		if err == nil {
			return block, nil
		}

		if errors.Is(err, chainclient.ErrSlotSkipped) || errors.Is(err, chainclient.ErrSlotNotAvailable) {
			return nil, err
		}
		if !errors.Is(err, chainclient.ErrRateLimited) && !errors.Is(err, chainclient.ErrUpstreamUnavailable) {
			return nil, err
		}

		lastErr = err
		if attempt < a.cfg.MaxAttempts {
			a.sugar.Warnw("transient upstream failure, backing off",
				"slot", slot, "attempt", attempt, "error", err)
			a.setPhase(PhaseBackoff)
			select {
			case <-time.After(a.cfg.RetryBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", errSlotGivenUp, lastErr)
}

// persist upserts the extracted records. Data conflicts leave the stored row
// untouched and are logged; any other store error is fatal.
func (a *Aggregator) persist(ctx context.Context, records []types.TransferRecord) error {
	for i := range records {
		record := &records[i]
		if err := a.store.Upsert(ctx, record); err != nil {
			if errors.Is(err, types.ErrDataConflict) {
				a.sugar.Warnw("conflicting values for stored record, keeping existing",
					"signature", record.Signature, "slot", record.Slot)
				a.metrics.IncDataConflict()
				continue
			}
			a.metrics.IncError(metrics.ErrTypeStore)
			return fmt.Errorf("upserting record %s: %w", record.Signature, err)
		}
	}
	return nil
}

// emitProgress publishes a committed slot on the progress channel without
// blocking the loop when no consumer is keeping up.
func (a *Aggregator) emitProgress(slot uint64) {
	select {
	case a.progress <- slot:
	default:
		a.sugar.Debugw("progress channel full, dropping signal", "slot", slot)
	}
}
