package watermark

// Watermark records the highest fully processed slot for a network. It is
// read once at startup to pick the resume point and rewritten after every
// successfully persisted slot. UpdatedAt drives ReplacingMergeTree
// deduplication so the newest write wins.
type Watermark struct {
	Network   string `json:"network"`
	Slot      uint64 `json:"highest_processed_slot"`
	UpdatedAt int64  `json:"updated_at"`
}
