package maxtree

// FloodStack holds the chain of open nodes during flooding, innermost on top.
// Levels on the stack are strictly ordered: each entry is more extreme than
// the one beneath it.
type FloodStack[T Float] struct {
	nodes  []int32
	levels []T
}

// NewFloodStack creates an empty stack.
func NewFloodStack[T Float](capacity int) *FloodStack[T] {
	return &FloodStack[T]{
		nodes:  make([]int32, 0, capacity),
		levels: make([]T, 0, capacity),
	}
}

// Len returns the number of open nodes.
func (s *FloodStack[T]) Len() int {
	return len(s.nodes)
}

// Push opens node at level.
func (s *FloodStack[T]) Push(node int32, level T) {
	s.nodes = append(s.nodes, node)
	s.levels = append(s.levels, level)
}

// Pop removes the innermost open node.
func (s *FloodStack[T]) Pop() (int32, T) {
	n := len(s.nodes) - 1
	if n < 0 {
		panic(&InvariantError{Op: "FloodStack.Pop", Msg: "stack underflow"})
	}
	node, level := s.nodes[n], s.levels[n]
	s.nodes = s.nodes[:n]
	s.levels = s.levels[:n]
	return node, level
}

// Peek returns the innermost open node without removing it.
func (s *FloodStack[T]) Peek() int32 {
	if len(s.nodes) == 0 {
		panic(&InvariantError{Op: "FloodStack.Peek", Msg: "stack underflow"})
	}
	return s.nodes[len(s.nodes)-1]
}

// PeekLevel returns the level of the innermost open node.
func (s *FloodStack[T]) PeekLevel() T {
	if len(s.levels) == 0 {
		panic(&InvariantError{Op: "FloodStack.PeekLevel", Msg: "stack underflow"})
	}
	return s.levels[len(s.levels)-1]
}
