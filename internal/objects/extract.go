package objects

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/significance"
)

var (
	// ErrInvalidParams is wrapped by every parameter validation failure.
	ErrInvalidParams = errors.New("objects: invalid parameters")

	// ErrMismatch reports inputs that do not belong to the same tree.
	ErrMismatch = errors.New("objects: inputs do not match tree")
)

// Params configures selection and measurement.
type Params struct {
	// MinContrast is the contrast, in units of Sigma, a frontier node must
	// reach above its significant ancestor to count as a separate object.
	MinContrast float64 `json:"min_contrast"`

	// MoveFactor is the distance, in units of Sigma, the object marker is
	// moved above the local background. Zero disables move-up.
	MoveFactor float64 `json:"move_factor"`

	// Sigma is the background noise standard deviation in tree units.
	Sigma float64 `json:"sigma"`

	// MinArea drops objects with fewer pixels.
	MinArea int `json:"min_area"`

	// Deblend enables splitting of significant nodes into their frontier.
	Deblend bool `json:"deblend"`

	// Offset is added to tree levels to express them in measurement units.
	Offset float64 `json:"offset"`
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min_contrast", p.MinContrast},
		{"move_factor", p.MoveFactor},
		{"sigma", p.Sigma},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %v", ErrInvalidParams, f.name, f.v)
		}
	}
	if math.IsNaN(p.Offset) || math.IsInf(p.Offset, 0) {
		return fmt.Errorf("%w: offset must be finite, got %v", ErrInvalidParams, p.Offset)
	}
	if p.MinArea < 0 {
		return fmt.Errorf("%w: min_area must be non-negative, got %d", ErrInvalidParams, p.MinArea)
	}
	return nil
}

// Extractor selects and measures objects with fixed parameters. It holds no
// per-tree state and is safe for concurrent use.
type Extractor struct {
	params Params
}

// NewExtractor validates params and returns an Extractor.
func NewExtractor(params Params) (*Extractor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{params: params}, nil
}

// Params returns the extractor's configuration.
func (e *Extractor) Params() Params {
	return e.params
}

// Extraction is the output of one extraction run.
type Extraction struct {
	Objects []DetectedObject `json:"objects"`

	// Labels holds one object id per pixel, 0 for background.
	Labels []int32 `json:"-"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// LabelAt returns the object id at (x, y).
func (ex *Extraction) LabelAt(x, y int) int32 {
	return ex.Labels[y*ex.Width+x]
}

// marker is a node chosen for output. selected is the node picked by the
// frontier walk; node is where move-up left the marker.
type marker struct {
	node      int32
	selected  int32
	deblended bool
}

// Extract selects objects from tree using the per-node verdicts in sig and
// measures them on measure, which must have the tree's dimensions.
func Extract[T maxtree.Float](e *Extractor, tree *maxtree.Tree[T], sig []significance.Result, measure maxtree.Image[T]) (*Extraction, error) {
	if len(sig) != tree.Len() {
		return nil, fmt.Errorf("%w: %d verdicts for %d nodes", ErrMismatch, len(sig), tree.Len())
	}
	if err := measure.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMismatch, err)
	}
	if measure.Width != tree.Width || measure.Height != tree.Height {
		return nil, fmt.Errorf("%w: measurement image is %dx%d, tree is %dx%d",
			ErrMismatch, measure.Width, measure.Height, tree.Width, tree.Height)
	}

	p := e.params
	markers := selectNodes(tree, sig, p)
	if p.MoveFactor > 0 {
		kids := tree.Children()
		for i := range markers {
			markers[i].node = moveUp(tree, kids, sig[markers[i].selected].Background, markers[i].node, p.MoveFactor*p.Sigma)
		}
	}

	labels := render(tree, markers)
	objs := measureObjects(tree, sig, markers, labels, measure, p.Offset)
	objs, labels = finish(objs, labels, p.MinArea)

	return &Extraction{
		Objects: objs,
		Labels:  labels,
		Width:   tree.Width,
		Height:  tree.Height,
	}, nil
}

// frontiers groups significant nodes under their nearest significant
// ancestor, or under the root when there is none.
func frontiers[T maxtree.Float](tree *maxtree.Tree[T], sig []significance.Result) [][]int32 {
	anchor := make([]int32, tree.Len())
	front := make([][]int32, tree.Len())
	for _, n := range tree.TopDown() {
		if tree.IsRoot(n) {
			continue
		}
		p := tree.Nodes[n].Parent
		if tree.IsRoot(p) || sig[p].Significant {
			anchor[n] = p
		} else {
			anchor[n] = anchor[p]
		}
		if sig[n].Significant {
			front[anchor[n]] = append(front[anchor[n]], n)
		}
	}
	return front
}

// selectNodes walks the frontiers from the root with an explicit stack.
func selectNodes[T maxtree.Float](tree *maxtree.Tree[T], sig []significance.Result, p Params) []marker {
	front := frontiers(tree, sig)
	threshold := p.MinContrast * p.Sigma

	var stack []marker
	push := func(nodes []int32, deblended bool) {
		for i := len(nodes) - 1; i >= 0; i-- {
			stack = append(stack, marker{node: nodes[i], selected: nodes[i], deblended: deblended})
		}
	}
	push(front[tree.Root], false)

	var out []marker
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.Deblend && splits(tree, front[m.node], m.node, threshold) {
			push(front[m.node], true)
			continue
		}
		out = append(out, m)
	}
	return out
}

// splits reports whether at least two frontier nodes reach threshold above
// the level of n.
func splits[T maxtree.Float](tree *maxtree.Tree[T], front []int32, n int32, threshold float64) bool {
	level := float64(tree.Nodes[n].Level)
	count := 0
	for _, d := range front {
		if math.Abs(float64(tree.Nodes[d].Peak)-level) >= threshold {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// moveUp climbs the main branch of n while its level stays within distance
// of background.
func moveUp[T maxtree.Float](tree *maxtree.Tree[T], kids [][]int32, background float64, n int32, distance float64) int32 {
	for math.Abs(float64(tree.Nodes[n].Level)-background) < distance {
		next := mainChild(tree, kids[n])
		if next == maxtree.NoParent {
			break
		}
		n = next
	}
	return n
}

// mainChild returns the largest child, lowest canonical pixel on ties.
func mainChild[T maxtree.Float](tree *maxtree.Tree[T], children []int32) int32 {
	best := maxtree.NoParent
	for _, c := range children {
		if best == maxtree.NoParent {
			best = c
			continue
		}
		cn, bn := &tree.Nodes[c], &tree.Nodes[best]
		if cn.Area > bn.Area || (cn.Area == bn.Area && cn.Canonical < bn.Canonical) {
			best = c
		}
	}
	return best
}

// render writes marker index + 1 into every pixel of each marker's subtree.
func render[T maxtree.Float](tree *maxtree.Tree[T], markers []marker) []int32 {
	nodeLabel := make([]int32, tree.Len())
	for i, m := range markers {
		nodeLabel[m.node] = int32(i + 1)
	}
	for _, n := range tree.TopDown() {
		if nodeLabel[n] != 0 || tree.IsRoot(n) {
			continue
		}
		nodeLabel[n] = nodeLabel[tree.Nodes[n].Parent]
	}

	labels := make([]int32, len(tree.Owner))
	for p, owner := range tree.Owner {
		labels[p] = nodeLabel[owner]
	}
	return labels
}

// moments accumulates one object's pixels.
type moments struct {
	area       int
	flux, raw  float64
	w, wx, wy  float64
	wxx, wyy   float64
	wxy        float64
	sx, sy     float64
	peak       float64
	peakPixel  int
	minX, minY int
	maxX, maxY int
}

// measureObjects sweeps the measurement image once and fills in the
// attributes of every marker.
func measureObjects[T maxtree.Float](tree *maxtree.Tree[T], sig []significance.Result, markers []marker, labels []int32, measure maxtree.Image[T], offset float64) []DetectedObject {
	acc := make([]moments, len(markers))
	bg := make([]float64, len(markers))
	for i, m := range markers {
		bg[i] = sig[m.selected].Background + offset
		acc[i] = moments{
			peakPixel: -1,
			minX:      tree.Width,
			minY:      tree.Height,
			maxX:      -1,
			maxY:      -1,
		}
	}

	w := measure.Width
	for p, l := range labels {
		if l == 0 {
			continue
		}
		a := &acc[l-1]
		x, y := p%w, p/w
		fx, fy := float64(x), float64(y)

		a.area++
		a.sx += fx
		a.sy += fy
		a.minX = min(a.minX, x)
		a.minY = min(a.minY, y)
		a.maxX = max(a.maxX, x)
		a.maxY = max(a.maxY, y)

		v := float64(measure.Pix[p])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d := v - bg[l-1]
		a.flux += d
		a.raw += v
		wt := math.Abs(d)
		a.w += wt
		a.wx += wt * fx
		a.wy += wt * fy
		a.wxx += wt * fx * fx
		a.wyy += wt * fy * fy
		a.wxy += wt * fx * fy
		if a.peakPixel < 0 || maxtree.MoreExtreme(tree.Polarity, v, a.peak) {
			a.peak = v
			a.peakPixel = p
		}
	}

	objs := make([]DetectedObject, len(markers))
	for i, m := range markers {
		a := &acc[i]
		o := DetectedObject{
			Node:         m.node,
			Area:         a.area,
			Flux:         a.flux,
			RawFlux:      a.raw,
			BBox:         BBox{MinX: a.minX, MinY: a.minY, MaxX: a.maxX, MaxY: a.maxY},
			Peak:         a.peak,
			PeakPixel:    a.peakPixel,
			Background:   bg[i],
			Significance: sig[m.selected].Score,
			Deblended:    m.deblended,
		}
		if a.peakPixel >= 0 {
			o.PeakX, o.PeakY = a.peakPixel%w, a.peakPixel/w
		}
		o.X, o.Y, o.XX, o.YY, o.XY = a.centroid()
		o.A, o.B, o.Theta = ellipse(o.XX, o.YY, o.XY)
		objs[i] = o
	}
	return objs
}

// centroid returns the weighted centroid and central second moments,
// falling back to unweighted geometry when every weight is zero.
func (a *moments) centroid() (x, y, xx, yy, xy float64) {
	if a.area == 0 {
		return 0, 0, 0, 0, 0
	}
	if a.w > 0 {
		x, y = a.wx/a.w, a.wy/a.w
		xx = max(a.wxx/a.w-x*x, 0)
		yy = max(a.wyy/a.w-y*y, 0)
		xy = a.wxy/a.w - x*y
		return x, y, xx, yy, xy
	}
	n := float64(a.area)
	return a.sx / n, a.sy / n, 0, 0, 0
}

// ellipse converts second moments into semi-axes and position angle
// (radians, counter-clockwise from +x).
func ellipse(xx, yy, xy float64) (a, b, theta float64) {
	mean := (xx + yy) / 2
	diff := (xx - yy) / 2
	root := math.Sqrt(diff*diff + xy*xy)
	a = math.Sqrt(max(mean+root, 0))
	b = math.Sqrt(max(mean-root, 0))
	if xy != 0 || xx != yy {
		theta = 0.5 * math.Atan2(2*xy, xx-yy)
	}
	return a, b, theta
}

// finish drops small objects, orders the rest and renumbers the label map.
func finish(objs []DetectedObject, labels []int32, minArea int) ([]DetectedObject, []int32) {
	type entry struct {
		obj DetectedObject
		old int32
	}
	kept := make([]entry, 0, len(objs))
	for i, o := range objs {
		if o.Area >= minArea && o.Area > 0 {
			kept = append(kept, entry{obj: o, old: int32(i + 1)})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		fi, fj := math.Abs(kept[i].obj.Flux), math.Abs(kept[j].obj.Flux)
		if fi != fj {
			return fi > fj
		}
		return kept[i].obj.PeakPixel < kept[j].obj.PeakPixel
	})

	remap := make([]int32, len(objs)+1)
	out := make([]DetectedObject, len(kept))
	for i, k := range kept {
		k.obj.ID = i + 1
		remap[k.old] = int32(i + 1)
		out[i] = k.obj
	}
	for p, l := range labels {
		labels[p] = remap[l]
	}
	return out, labels
}
