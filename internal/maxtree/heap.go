package maxtree

import "fmt"

// InvariantError reports a broken internal invariant (for example popping an
// empty heap). It indicates a bug, never bad input, and is raised with panic.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("maxtree: invariant violated in %s: %s", e.Op, e.Msg)
}

type heapItem[T Float] struct {
	value T
	seq   uint64
	pixel int32
}

// PixelHeap is a priority queue of pixel indices keyed by intensity.
//
// With Bright polarity the largest value pops first, with Dark the smallest.
// Equal values pop in insertion order, which keeps tree construction
// reproducible. The heap is not safe for concurrent use.
type PixelHeap[T Float] struct {
	items    []heapItem[T]
	polarity Polarity
	seq      uint64
}

// NewPixelHeap creates an empty heap with room for capacity pixels.
func NewPixelHeap[T Float](polarity Polarity, capacity int) *PixelHeap[T] {
	return &PixelHeap[T]{
		items:    make([]heapItem[T], 0, capacity),
		polarity: polarity,
	}
}

// Len returns the number of queued pixels.
func (h *PixelHeap[T]) Len() int {
	return len(h.items)
}

// Push queues pixel with the given priority. O(log n).
func (h *PixelHeap[T]) Push(pixel int32, value T) {
	h.items = append(h.items, heapItem[T]{value: value, seq: h.seq, pixel: pixel})
	h.seq++
	h.up(len(h.items) - 1)
}

// Peek returns the next pixel and its value without removing it.
func (h *PixelHeap[T]) Peek() (int32, T) {
	if len(h.items) == 0 {
		panic(&InvariantError{Op: "PixelHeap.Peek", Msg: "heap is empty"})
	}
	return h.items[0].pixel, h.items[0].value
}

// Pop removes and returns the most extreme pixel. O(log n).
func (h *PixelHeap[T]) Pop() (int32, T) {
	n := len(h.items) - 1
	if n < 0 {
		panic(&InvariantError{Op: "PixelHeap.Pop", Msg: "heap is empty"})
	}
	h.swap(0, n)
	h.down(0, n)
	it := h.items[n]
	h.items = h.items[:n]
	return it.pixel, it.value
}

// Reset empties the heap, keeping its storage.
func (h *PixelHeap[T]) Reset() {
	h.items = h.items[:0]
	h.seq = 0
}

func (h *PixelHeap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// less orders item i before item j.
func (h *PixelHeap[T]) less(i, j int) bool {
	a, b := &h.items[i], &h.items[j]
	if a.value != b.value {
		return MoreExtreme(h.polarity, a.value, b.value)
	}
	return a.seq < b.seq
}

func (h *PixelHeap[T]) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *PixelHeap[T]) down(i, n int) {
	for {
		j := 2*i + 1
		if j >= n {
			return
		}
		if j2 := j + 1; j2 < n && h.less(j2, j) {
			j = j2
		}
		if !h.less(j, i) {
			return
		}
		h.swap(i, j)
		i = j
	}
}
