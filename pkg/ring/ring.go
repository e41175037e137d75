// Package ring provides a fixed-capacity circular buffer.
package ring

// Buffer keeps the most recent values added to it, overwriting the
// oldest once capacity is reached. It is not safe for concurrent use;
// callers that share one across goroutines guard it themselves.
type Buffer[T any] struct {
	items []T
	size  int
	head  int // next slot to write
	count int // elements currently held
}

// New creates a Buffer with the given capacity. It panics when the
// capacity is not positive.
func New[T any](size int) *Buffer[T] {
	if size <= 0 {
		panic("ring: buffer size must be positive")
	}
	return &Buffer[T]{
		items: make([]T, size),
		size:  size,
	}
}

// Add appends an item, overwriting the oldest when full.
func (b *Buffer[T]) Add(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Len reports how many items the buffer currently holds.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap reports the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return b.size
}

// Items returns the buffered values, oldest first.
func (b *Buffer[T]) Items() []T {
	if b.count == 0 {
		return nil
	}
	out := make([]T, b.count)
	if b.count < b.size {
		copy(out, b.items[:b.head])
		return out
	}
	// Full buffer: the oldest item sits at head, the newest just before it.
	n := copy(out, b.items[b.head:])
	copy(out[n:], b.items[:b.head])
	return out
}

// Latest returns the most recently added value. The second return value
// is false when the buffer is empty.
func (b *Buffer[T]) Latest() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.items[(b.head-1+b.size)%b.size], true
}
