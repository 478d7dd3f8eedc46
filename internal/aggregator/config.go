package aggregator

import "time"

// Config holds the configuration for the ingestion loop.
type Config struct {
	Network        string        // Network label used to key the watermark
	Iterations     uint64        // Number of slots to persist before stopping
	MaxAttempts    int           // Maximum fetch attempts per slot before giving up on it
	RetryBackoff   time.Duration // Backoff duration between fetch attempts
	MaxFailures    int           // Consecutive given-up slots tolerated before aborting
	ProgressBuffer int           // Capacity of the progress signal channel
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Network:        "mainnet-beta",
		Iterations:     100,
		MaxAttempts:    3,
		RetryBackoff:   500 * time.Millisecond,
		MaxFailures:    5,
		ProgressBuffer: 16,
	}
}
