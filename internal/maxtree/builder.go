package maxtree

import (
	"context"
	"fmt"
)

// cancelCheckInterval is how many heap extractions pass between context
// checks in BuildContext. Must be a power of two.
const cancelCheckInterval = 4096

// Builder constructs component trees with a fixed connectivity and polarity.
// A Builder holds no per-image state and may be shared between goroutines;
// each Build call allocates its own heap, stack and arena.
type Builder[T Float] struct {
	Connectivity Connectivity
	Polarity     Polarity
}

// NewBuilder validates the configuration and returns a Builder.
func NewBuilder[T Float](conn Connectivity, polarity Polarity) (*Builder[T], error) {
	b := &Builder[T]{Connectivity: conn, Polarity: polarity}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder[T]) validate() error {
	if !b.Connectivity.Valid() {
		return fmt.Errorf("%w: got %d", ErrConnectivity, int(b.Connectivity))
	}
	if !b.Polarity.Valid() {
		return fmt.Errorf("%w: %v", ErrPolarity, b.Polarity)
	}
	return nil
}

// Build constructs the tree of img.
func (b *Builder[T]) Build(img Image[T]) (*Tree[T], error) {
	return b.BuildContext(context.Background(), img)
}

// BuildContext is Build with cancellation. The context is polled between
// heap extractions; a cancelled build returns ctx.Err() and no tree.
//
// Returns a configuration error (ErrConnectivity, ErrPolarity, ErrEmptyImage,
// ErrDimensions, ErrNonFinite) before touching any pixel when the input is
// malformed.
func (b *Builder[T]) BuildContext(ctx context.Context, img Image[T]) (*Tree[T], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := checkFinite(img.Pix); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := newFlood(img, b.Connectivity, b.Polarity)
	if err := f.run(ctx); err != nil {
		return nil, err
	}
	return f.tree, nil
}

// Build is a convenience wrapper around NewBuilder and Builder.Build.
func Build[T Float](img Image[T], conn Connectivity, polarity Polarity) (*Tree[T], error) {
	b, err := NewBuilder[T](conn, polarity)
	if err != nil {
		return nil, err
	}
	return b.Build(img)
}

// flood carries the state of one construction pass.
type flood[T Float] struct {
	img      Image[T]
	polarity Polarity
	offsets  [][2]int
	heap     *PixelHeap[T]
	stack    *FloodStack[T]
	reached  []bool
	tree     *Tree[T]
}

func newFlood[T Float](img Image[T], conn Connectivity, polarity Polarity) *flood[T] {
	n := img.Len()
	owner := make([]int32, n)
	for i := range owner {
		owner[i] = NoParent
	}
	return &flood[T]{
		img:      img,
		polarity: polarity,
		offsets:  conn.offsets(),
		heap:     NewPixelHeap[T](polarity, n),
		stack:    NewFloodStack[T](64),
		reached:  make([]bool, n),
		tree: &Tree[T]{
			Width:        img.Width,
			Height:       img.Height,
			Polarity:     polarity,
			Connectivity: conn,
			Owner:        owner,
			Order:        make([]int32, 0, 64),
			Root:         NoParent,
		},
	}
}

// seed returns the first pixel holding the least extreme value, so that the
// node opened for it ends up as the root.
func (f *flood[T]) seed() int32 {
	best := 0
	for i, v := range f.img.Pix {
		if MoreExtreme(f.polarity, f.img.Pix[best], v) {
			best = i
		}
	}
	return int32(best)
}

func (f *flood[T]) run(ctx context.Context) error {
	pix := f.img.Pix
	current := f.seed()
	f.reached[current] = true
	f.stack.Push(f.openNode(current), pix[current])

	extractions := 0
	for {
		if nb, ok := f.descend(current); ok {
			// Come back to current once the brighter region is done.
			f.heap.Push(current, pix[current])
			f.stack.Push(f.openNode(nb), pix[nb])
			current = nb
			continue
		}

		f.assign(current)
		if f.heap.Len() == 0 {
			break
		}

		extractions++
		if extractions&(cancelCheckInterval-1) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		next, v := f.heap.Pop()
		if MoreExtreme(f.polarity, f.stack.PeekLevel(), v) {
			f.closeTo(next, v)
		}
		current = next
	}

	for f.stack.Len() > 1 {
		child, _ := f.stack.Pop()
		f.link(child, f.stack.Peek())
	}
	root, _ := f.stack.Pop()
	f.tree.Root = root
	f.tree.Order = append(f.tree.Order, root)
	return nil
}

// descend marks the unreached neighbours of p as reached. The first one
// that is more extreme than p is returned; the others are queued.
func (f *flood[T]) descend(p int32) (int32, bool) {
	w, h := f.img.Width, f.img.Height
	x, y := int(p)%w, int(p)/w
	pv := f.img.Pix[p]
	for _, o := range f.offsets {
		nx, ny := x+o[0], y+o[1]
		if nx < 0 || nx >= w || ny < 0 || ny >= h {
			continue
		}
		nb := int32(ny*w + nx)
		if f.reached[nb] {
			continue
		}
		f.reached[nb] = true
		nv := f.img.Pix[nb]
		if MoreExtreme(f.polarity, nv, pv) {
			return nb, true
		}
		f.heap.Push(nb, nv)
	}
	return NoParent, false
}

// closeTo closes open nodes more extreme than v, the value of pixel p. If v
// falls strictly between two open levels a node is opened for it.
func (f *flood[T]) closeTo(p int32, v T) {
	for MoreExtreme(f.polarity, f.stack.PeekLevel(), v) {
		child, _ := f.stack.Pop()
		if f.stack.Len() == 0 || MoreExtreme(f.polarity, v, f.stack.PeekLevel()) {
			f.stack.Push(f.openNode(p), v)
		}
		f.link(child, f.stack.Peek())
	}
}

func (f *flood[T]) openNode(p int32) int32 {
	x, y := f.img.Coords(int(p))
	v := f.img.Pix[p]
	f.tree.Nodes = append(f.tree.Nodes, Node[T]{
		Parent:    NoParent,
		Level:     v,
		Canonical: p,
		Peak:      v,
		PeakPixel: p,
		MinX:      x,
		MinY:      y,
		MaxX:      x,
		MaxY:      y,
	})
	return int32(len(f.tree.Nodes) - 1)
}

func (f *flood[T]) assign(p int32) {
	n := f.stack.Peek()
	f.tree.Owner[p] = n
	x, y := f.img.Coords(int(p))
	f.tree.Nodes[n].addPixel(f.polarity, p, x, y, f.img.Pix[p])
}

// link closes child under parent, folding the child's aggregates into the
// parent. Node identities are kept; only the sums move.
func (f *flood[T]) link(child, parent int32) {
	nodes := f.tree.Nodes
	nodes[child].Parent = parent
	nodes[parent].merge(f.polarity, &nodes[child])
	f.tree.Order = append(f.tree.Order, child)
}
