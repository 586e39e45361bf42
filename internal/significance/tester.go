package significance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("significance: invalid parameters")

// Params configures the test.
type Params struct {
	// Alpha is the false-positive rate per node, in (0, 1).
	Alpha float64 `json:"alpha"`

	// Variance is the background noise variance of the image the tree was
	// built from. Zero means noise-free input.
	Variance float64 `json:"variance"`

	// Gain converts intensity to detected counts for the Poisson term.
	// Zero disables it.
	Gain float64 `json:"gain,omitempty"`
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if !(p.Alpha > 0 && p.Alpha < 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1), got %v", ErrInvalidParams, p.Alpha)
	}
	if p.Variance < 0 || math.IsNaN(p.Variance) || math.IsInf(p.Variance, 0) {
		return fmt.Errorf("%w: variance must be finite and non-negative, got %v", ErrInvalidParams, p.Variance)
	}
	if p.Gain < 0 || math.IsNaN(p.Gain) || math.IsInf(p.Gain, 0) {
		return fmt.Errorf("%w: gain must be finite and non-negative, got %v", ErrInvalidParams, p.Gain)
	}
	return nil
}

// Result is the verdict for one node.
type Result struct {
	Significant bool `json:"significant"`

	// Statistic is the normalised power of the tested pixels.
	Statistic float64 `json:"statistic"`

	// Critical is the chi-squared threshold for OwnArea degrees of freedom.
	Critical float64 `json:"critical"`

	// Score is Statistic/Critical; values above 1 are significant.
	Score float64 `json:"score"`

	// Background is the local background level (the parent's level).
	Background float64 `json:"background"`

	// OwnArea is the number of pixels tested: the subtree minus the
	// subtrees of significant descendants.
	OwnArea int `json:"own_area"`
}

// PValue is the probability of a statistic at least this large under pure
// noise.
func (r Result) PValue() float64 {
	if r.OwnArea <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(r.OwnArea)}.Survival(r.Statistic)
}

// Tester evaluates trees against fixed parameters. Critical values are
// memoised per degree of freedom, so a Tester is not safe for concurrent use.
type Tester struct {
	params   Params
	critical []float64
}

// NewTester validates params and returns a Tester.
func NewTester(params Params) (*Tester, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Tester{params: params}, nil
}

// Params returns the tester's configuration.
func (t *Tester) Params() Params {
	return t.params
}

// Critical returns the chi-squared quantile at 1 − Alpha for dof degrees of
// freedom.
func (t *Tester) Critical(dof int) float64 {
	if dof >= len(t.critical) {
		grown := make([]float64, max(dof+1, 2*len(t.critical)))
		copy(grown, t.critical)
		t.critical = grown
	}
	if c := t.critical[dof]; c > 0 {
		return c
	}
	c := distuv.ChiSquared{K: float64(dof)}.Quantile(1 - t.params.Alpha)
	t.critical[dof] = c
	return c
}

// variance returns the noise variance expected at background level r.
func (t *Tester) variance(r float64) float64 {
	v := t.params.Variance
	if t.params.Gain > 0 {
		v += math.Abs(r) / t.params.Gain
	}
	return v
}

func (t *Tester) decide(power float64, dof int, r float64) Result {
	res := Result{Background: r, OwnArea: dof, Critical: t.Critical(dof)}
	switch v := t.variance(r); {
	case v > 0:
		res.Statistic = power / v
	case power > 0:
		res.Statistic = math.Inf(1)
	}
	res.Score = res.Statistic / res.Critical
	res.Significant = res.Statistic > res.Critical
	return res
}

// excluded accumulates the pixels of significant descendants.
type excluded struct {
	area  int
	sum   float64
	sumSq float64
}

// Annotate tests every node of tree and returns one Result per node, indexed
// like tree.Nodes. Nodes are processed in tree.Order so that each node sees
// the final verdicts of all its descendants.
func Annotate[T maxtree.Float](t *Tester, tree *maxtree.Tree[T]) []Result {
	results := make([]Result, tree.Len())
	ex := make([]excluded, tree.Len())

	for _, id := range tree.Order {
		node := &tree.Nodes[id]
		own := node.Area - ex[id].area
		if tree.IsRoot(id) {
			results[id] = Result{Background: float64(node.Level), OwnArea: own}
			continue
		}

		r := float64(tree.Nodes[node.Parent].Level)
		sum := node.Sum - ex[id].sum
		sumSq := node.SumSq - ex[id].sumSq
		power := max(sumSq-2*r*sum+r*r*float64(own), 0)
		results[id] = t.decide(power, own, r)

		up := &ex[node.Parent]
		if results[id].Significant {
			up.area += node.Area
			up.sum += node.Sum
			up.sumSq += node.SumSq
		} else {
			up.area += ex[id].area
			up.sum += ex[id].sum
			up.sumSq += ex[id].sumSq
		}
	}
	return results
}

// Count returns the number of significant nodes.
func Count(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Significant {
			n++
		}
	}
	return n
}
