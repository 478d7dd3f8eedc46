package types

import (
	"errors"
	"time"
)

// ErrDataConflict is returned by Merge when an incoming record would overwrite
// an already-stored non-null field with a different value. The stored record is
// left unchanged; callers log and continue.
var ErrDataConflict = errors.New("transfer record field conflict")

// TransferRecord is a normalized per-transaction transfer extracted from a
// block. Signature is the unique identity of a record. Sender, Receiver,
// Amount and BlockTime are nullable: the extractor keeps records it cannot
// fully resolve rather than dropping them.
type TransferRecord struct {
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"block_time"`
	Sender    *string    `json:"sender"`
	Receiver  *string    `json:"receiver"`
	Amount    *int64     `json:"amount"`
	RawStatus string     `json:"raw_status"`
}

// Merge folds other into r, filling only fields that are currently null.
// It reports whether r changed. A non-null field of r is never overwritten:
// if other carries a different non-null value for it, Merge returns
// ErrDataConflict and leaves r untouched.
func (r *TransferRecord) Merge(other *TransferRecord) (bool, error) {
	if other.Signature != r.Signature {
		return false, ErrDataConflict
	}
	if err := r.checkConflicts(other); err != nil {
		return false, err
	}

	changed := false
	if r.BlockTime == nil && other.BlockTime != nil {
		t := *other.BlockTime
		r.BlockTime = &t
		changed = true
	}
	if r.Sender == nil && other.Sender != nil {
		s := *other.Sender
		r.Sender = &s
		changed = true
	}
	if r.Receiver == nil && other.Receiver != nil {
		s := *other.Receiver
		r.Receiver = &s
		changed = true
	}
	if r.Amount == nil && other.Amount != nil {
		a := *other.Amount
		r.Amount = &a
		changed = true
	}
	if r.RawStatus == "" && other.RawStatus != "" {
		r.RawStatus = other.RawStatus
		changed = true
	}
	return changed, nil
}

// checkConflicts validates other against r before any field is touched so a
// failed merge leaves r byte-identical to its stored state.
func (r *TransferRecord) checkConflicts(other *TransferRecord) error {
	if r.Slot != 0 && other.Slot != 0 && r.Slot != other.Slot {
		return ErrDataConflict
	}
	if r.BlockTime != nil && other.BlockTime != nil && !r.BlockTime.Equal(*other.BlockTime) {
		return ErrDataConflict
	}
	if r.Sender != nil && other.Sender != nil && *r.Sender != *other.Sender {
		return ErrDataConflict
	}
	if r.Receiver != nil && other.Receiver != nil && *r.Receiver != *other.Receiver {
		return ErrDataConflict
	}
	if r.Amount != nil && other.Amount != nil && *r.Amount != *other.Amount {
		return ErrDataConflict
	}
	if r.RawStatus != "" && other.RawStatus != "" && r.RawStatus != other.RawStatus {
		return ErrDataConflict
	}
	return nil
}
