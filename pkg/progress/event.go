package progress

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the message published for every committed slot.
type Event struct {
	Network     string    `json:"network"`
	Slot        uint64    `json:"slot"`
	CommittedAt time.Time `json:"committed_at"`
}

// Marshal renders the event payload. The network doubles as the partition key
// so per-network ordering is preserved.
func (e Event) Marshal() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling progress event for slot %d: %w", e.Slot, err)
	}
	return payload, nil
}
