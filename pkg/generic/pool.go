package generic

import "sync"

// Pool is a typed sync.Pool. When reset is set it runs on every value handed
// back before the value becomes reusable.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

func NewPool[T any](generate func() T, reset func(T) T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
		reset: reset,
	}
}

// NewSlicePool pools *[]T buffers of the given starting capacity. Returned
// buffers are truncated and their elements zeroed so pooled slices keep no
// references alive.
func NewSlicePool[T any](capacity int) *Pool[*[]T] {
	return NewPool(
		func() *[]T {
			s := make([]T, 0, capacity)
			return &s
		},
		func(s *[]T) *[]T {
			clear(*s)
			*s = (*s)[:0]
			return s
		},
	)
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		value = p.reset(value)
	}
	p.pool.Put(value)
}
