// Package timedelta tracks the running average clock skew between this
// process and a database server.
package timedelta

import "sync"

// TimeDelta is a thread-safe running average of clock skew samples, in
// milliseconds. The zero value is ready to use.
type TimeDelta struct {
	mu    sync.Mutex
	value int64
	set   bool
}

// Update folds a new sample into the running average: the first sample is
// stored as-is, every subsequent sample becomes (prev+sample)/2.
func (t *TimeDelta) Update(sample int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.set {
		t.value = sample
		t.set = true
		return
	}
	t.value = (t.value + sample) / 2
}

// Value returns the current running average.
func (t *TimeDelta) Value() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}
