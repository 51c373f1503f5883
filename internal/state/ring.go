package state

// ring is a fixed-capacity append-only buffer that evicts oldest-first.
type ring[T any] struct {
	buf   []T
	head  int // index of the oldest entry
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = v
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance.
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// newestFirst returns the entries most recent first.
func (r *ring[T]) newestFirst() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+r.count-1-i)%len(r.buf)]
	}
	return out
}
