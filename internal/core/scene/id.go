package scene

import (
	"math"
	"sync/atomic"
)

var lastID atomic.Uint64

// nextID hands out process-unique ids. Construction may happen on loader
// goroutines, so the counter is atomic. Zero is never returned and the
// counter never wraps: once exhausted every call panics.
func nextID() uint64 {
	for {
		last := lastID.Load()
		if last == math.MaxUint64 {
			panic(ErrIDOverflow)
		}
		if lastID.CompareAndSwap(last, last+1) {
			return last + 1
		}
	}
}
