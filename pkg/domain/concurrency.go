package domain

import "time"

// CheckConcurrency compares the caller's expected stamp with the stored one.
// A nil expectation passes (best-effort mode). The comparison is advisory: stores
// repeat it atomically when applying the write.
func CheckConcurrency(entity EntityType, id string, stored time.Time, expected *time.Time) error {
	if expected == nil {
		return nil
	}
	if !stored.Equal(*expected) {
		return NewStaleWriteError(entity, id, *expected, stored)
	}
	return nil
}

// NextStamp returns the stamp for a write committed at now. The result is always
// strictly after prev, so stamps advance even when the clock does not.
func NextStamp(prev, now time.Time) time.Time {
	now = now.UTC().Round(0)
	if !now.After(prev) {
		return prev.UTC().Add(time.Nanosecond)
	}
	return now
}
