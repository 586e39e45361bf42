package maxtree

import "fmt"

// NoParent marks the root node.
const NoParent int32 = -1

// Node is one connected component at one intensity level.
//
// All aggregates cover the node's whole subtree. Coordinate sums are
// unweighted; intensity-weighted moments are computed by the object
// extractor from the label map.
type Node[T Float] struct {
	// Parent is the index of the enclosing, less extreme component, or
	// NoParent for the root.
	Parent int32 `json:"parent"`

	// Level is the intensity shared by every pixel the node owns directly.
	Level T `json:"level"`

	// Canonical is the first pixel the flood reached at this level.
	Canonical int32 `json:"canonical"`

	// DirectArea counts pixels owned by this node and not by a descendant.
	DirectArea int `json:"direct_area"`

	// Area counts every pixel in the subtree.
	Area int `json:"area"`

	Sum   float64 `json:"sum"`
	SumSq float64 `json:"sum_sq"`
	SumX  float64 `json:"sum_x"`
	SumY  float64 `json:"sum_y"`
	SumXX float64 `json:"sum_xx"`
	SumYY float64 `json:"sum_yy"`
	SumXY float64 `json:"sum_xy"`

	// Peak is the most extreme value in the subtree and PeakPixel where it
	// occurs (lowest index on ties).
	Peak      T     `json:"peak"`
	PeakPixel int32 `json:"peak_pixel"`

	// Bounding box of the subtree, inclusive.
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Mean returns the mean subtree intensity.
func (n *Node[T]) Mean() float64 {
	if n.Area == 0 {
		return 0
	}
	return n.Sum / float64(n.Area)
}

func (n *Node[T]) addPixel(polarity Polarity, p int32, x, y int, v T) {
	f := float64(v)
	fx, fy := float64(x), float64(y)
	n.DirectArea++
	n.Area++
	n.Sum += f
	n.SumSq += f * f
	n.SumX += fx
	n.SumY += fy
	n.SumXX += fx * fx
	n.SumYY += fy * fy
	n.SumXY += fx * fy
	if MoreExtreme(polarity, v, n.Peak) || (v == n.Peak && p < n.PeakPixel) {
		n.Peak = v
		n.PeakPixel = p
	}
	n.MinX = min(n.MinX, x)
	n.MinY = min(n.MinY, y)
	n.MaxX = max(n.MaxX, x)
	n.MaxY = max(n.MaxY, y)
}

func (n *Node[T]) merge(polarity Polarity, c *Node[T]) {
	n.Area += c.Area
	n.Sum += c.Sum
	n.SumSq += c.SumSq
	n.SumX += c.SumX
	n.SumY += c.SumY
	n.SumXX += c.SumXX
	n.SumYY += c.SumYY
	n.SumXY += c.SumXY
	if MoreExtreme(polarity, c.Peak, n.Peak) || (c.Peak == n.Peak && c.PeakPixel < n.PeakPixel) {
		n.Peak = c.Peak
		n.PeakPixel = c.PeakPixel
	}
	n.MinX = min(n.MinX, c.MinX)
	n.MinY = min(n.MinY, c.MinY)
	n.MaxX = max(n.MaxX, c.MaxX)
	n.MaxY = max(n.MaxY, c.MaxY)
}

// Tree is a complete component tree. It is immutable once built.
type Tree[T Float] struct {
	Width        int
	Height       int
	Polarity     Polarity
	Connectivity Connectivity

	// Nodes is the arena; indices are stable node ids.
	Nodes []Node[T]

	// Owner maps each pixel index to the node that owns it directly.
	Owner []int32

	// Order lists nodes in closing order. Children always precede parents
	// and the root is last.
	Order []int32

	Root int32
}

// Len returns the number of nodes.
func (t *Tree[T]) Len() int {
	return len(t.Nodes)
}

// IsRoot reports whether n is the root node.
func (t *Tree[T]) IsRoot(n int32) bool {
	return n == t.Root
}

// TopDown returns the nodes with every parent before its children.
func (t *Tree[T]) TopDown() []int32 {
	out := make([]int32, len(t.Order))
	for i, n := range t.Order {
		out[len(t.Order)-1-i] = n
	}
	return out
}

// Children returns each node's children in ascending index order.
func (t *Tree[T]) Children() [][]int32 {
	kids := make([][]int32, len(t.Nodes))
	for i := range t.Nodes {
		if p := t.Nodes[i].Parent; p != NoParent {
			kids[p] = append(kids[p], int32(i))
		}
	}
	return kids
}

// SubtreeMask marks n and all of its descendants.
func (t *Tree[T]) SubtreeMask(n int32) []bool {
	mark := make([]bool, len(t.Nodes))
	mark[n] = true
	for _, m := range t.TopDown() {
		if p := t.Nodes[m].Parent; p != NoParent && mark[p] {
			mark[m] = true
		}
	}
	return mark
}

// SubtreePixels returns the pixel indices in n's subtree in ascending order.
func (t *Tree[T]) SubtreePixels(n int32) []int32 {
	mark := t.SubtreeMask(n)
	out := make([]int32, 0, t.Nodes[n].Area)
	for p, owner := range t.Owner {
		if mark[owner] {
			out = append(out, int32(p))
		}
	}
	return out
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[T]) Depth() int {
	depth := make([]int, len(t.Nodes))
	deepest := 0
	for _, n := range t.TopDown() {
		d := 1
		if p := t.Nodes[n].Parent; p != NoParent {
			d = depth[p] + 1
		}
		depth[n] = d
		deepest = max(deepest, d)
	}
	return deepest
}

// Leaves counts nodes without children (regional extrema).
func (t *Tree[T]) Leaves() int {
	hasChild := make([]bool, len(t.Nodes))
	for i := range t.Nodes {
		if p := t.Nodes[i].Parent; p != NoParent {
			hasChild[p] = true
		}
	}
	n := 0
	for _, c := range hasChild {
		if !c {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants: a single root, every pixel
// owned by exactly one node, areas that add up, children closed before
// parents and levels strictly more extreme than the parent's.
func (t *Tree[T]) Validate() error {
	if t.Root < 0 || int(t.Root) >= len(t.Nodes) {
		return fmt.Errorf("root index %d out of range", t.Root)
	}
	if t.Nodes[t.Root].Parent != NoParent {
		return fmt.Errorf("root %d has parent %d", t.Root, t.Nodes[t.Root].Parent)
	}
	if len(t.Owner) != t.Width*t.Height {
		return fmt.Errorf("owner map has %d entries, want %d", len(t.Owner), t.Width*t.Height)
	}
	if len(t.Order) != len(t.Nodes) {
		return fmt.Errorf("order has %d entries, want %d", len(t.Order), len(t.Nodes))
	}

	area := make([]int, len(t.Nodes))
	for p, n := range t.Owner {
		if n < 0 || int(n) >= len(t.Nodes) {
			return fmt.Errorf("pixel %d owned by invalid node %d", p, n)
		}
		area[n]++
	}
	for i := range t.Nodes {
		if area[i] != t.Nodes[i].DirectArea {
			return fmt.Errorf("node %d: %d direct pixels, recorded %d", i, area[i], t.Nodes[i].DirectArea)
		}
	}

	closed := make([]bool, len(t.Nodes))
	for _, n := range t.Order {
		nd := &t.Nodes[n]
		if closed[n] {
			return fmt.Errorf("node %d closed twice", n)
		}
		closed[n] = true
		if area[n] != nd.Area {
			return fmt.Errorf("node %d: subtree area %d, recorded %d", n, area[n], nd.Area)
		}
		if n == t.Root {
			continue
		}
		if nd.Parent == NoParent {
			return fmt.Errorf("node %d has no parent but is not the root", n)
		}
		if closed[nd.Parent] {
			return fmt.Errorf("node %d closed after its parent %d", n, nd.Parent)
		}
		if !MoreExtreme(t.Polarity, nd.Level, t.Nodes[nd.Parent].Level) {
			return fmt.Errorf("node %d level %v not beyond parent level %v",
				n, nd.Level, t.Nodes[nd.Parent].Level)
		}
		area[nd.Parent] += area[n]
	}
	if t.Order[len(t.Order)-1] != t.Root {
		return fmt.Errorf("root %d is not closed last", t.Root)
	}
	if t.Nodes[t.Root].Area != len(t.Owner) {
		return fmt.Errorf("root area %d, want %d", t.Nodes[t.Root].Area, len(t.Owner))
	}
	return nil
}
