package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for non-locking atomic operations, by
// storing its bits in an atomic.Uint64. Rollout workers accumulate episode
// returns into these while the server and CLI read them concurrently.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 encapsulates a float64 for atomic operations.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.bits.Store(math.Float64bits(val))
	return af
}

// AtomicRead atomically reads the float64.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicAdd attempts to add @addend once.
// If the value changes while we're operating upon it, it is better for the caller
// to know and take some other action (drop the update, recalculate, etc), so a
// lost race is reported rather than retried.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// Add adds @addend, retrying until no other writer intervenes.
func (af *AtomicFloat64) Add(addend float64) float64 {
	for {
		if newVal, ok := af.AtomicAdd(addend); ok {
			return newVal
		}
	}
}

// AtomicSet unconditionally sets the float64.
func (af *AtomicFloat64) AtomicSet(newVal float64) {
	af.bits.Store(math.Float64bits(newVal))
}

// Max raises the stored value to @val if it is larger, returning the result.
func (af *AtomicFloat64) Max(val float64) float64 {
	for {
		old := af.bits.Load()
		cur := math.Float64frombits(old)
		if val <= cur {
			return cur
		}
		if af.bits.CompareAndSwap(old, math.Float64bits(val)) {
			return val
		}
	}
}
