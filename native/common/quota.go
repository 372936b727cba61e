package common

import (
	"errors"
	"math"
)

var (
	ErrWindowLimitExceeded  = errors.New("window submission limit exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// Window captures the submissions an account made in its current rolling
// block window.
type Window struct {
	Start uint64
	Count uint32
}

// WindowQuota bounds submissions per account to Max within Blocks blocks.
type WindowQuota struct {
	Blocks uint64
	Max    uint32
}

// CheckWindow verifies that one more submission at height now fits the quota.
// The window rolls on the first submission past its edge. The returned Window
// reflects the updated counters when the quota is not exceeded; on failure the
// previous value is returned unchanged.
func CheckWindow(q WindowQuota, now uint64, prev Window) (Window, error) {
	next := prev
	if q.Blocks == 0 || now >= prev.Start+q.Blocks || now < prev.Start {
		next = Window{Start: now}
	}
	if next.Count == math.MaxUint32 {
		return prev, ErrQuotaCounterOverflow
	}
	next.Count++
	if q.Max > 0 && next.Count > q.Max {
		return prev, ErrWindowLimitExceeded
	}
	return next, nil
}
