package maxtree

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plateauImage is a 5x5 background of 0 with a 3x3 plateau at 5 whose
// centre pixel rises to 9.
func plateauImage[T Float]() Image[T] {
	pix := []T{
		0, 0, 0, 0, 0,
		0, 5, 5, 5, 0,
		0, 5, 9, 5, 0,
		0, 5, 5, 5, 0,
		0, 0, 0, 0, 0,
	}
	return Image[T]{Width: 5, Height: 5, Pix: pix}
}

// randomImage quantises uniform noise to a few levels so that plateaus and
// ties are common.
func randomImage(seed int64, w, h, levels int) Image[float64] {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]float64, w*h)
	for i := range pix {
		pix[i] = float64(rng.Intn(levels))
	}
	return Image[float64]{Width: w, Height: h, Pix: pix}
}

func nodeAtLevel[T Float](t *testing.T, tree *Tree[T], level T) int32 {
	t.Helper()
	for i := range tree.Nodes {
		if tree.Nodes[i].Level == level {
			return int32(i)
		}
	}
	t.Fatalf("no node at level %v", level)
	return NoParent
}

func TestBuild_PlateauAdditivity(t *testing.T) {
	tree, err := Build(plateauImage[float64](), Eight, Bright)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	require.Equal(t, 3, tree.Len())

	root := tree.Nodes[tree.Root]
	plateau := nodeAtLevel(t, tree, 5.0)
	peak := nodeAtLevel(t, tree, 9.0)

	assert.Equal(t, 0.0, root.Level)
	assert.Equal(t, 16, root.DirectArea)
	assert.Equal(t, 25, root.Area)

	assert.Equal(t, tree.Root, tree.Nodes[plateau].Parent)
	assert.Equal(t, 8, tree.Nodes[plateau].DirectArea)
	assert.Equal(t, 9, tree.Nodes[plateau].Area)

	assert.Equal(t, plateau, tree.Nodes[peak].Parent)
	assert.Equal(t, 1, tree.Nodes[peak].Area)

	// Area of every node is its direct pixels plus its children's areas.
	kids := tree.Children()
	for i := range tree.Nodes {
		sum := tree.Nodes[i].DirectArea
		for _, c := range kids[i] {
			sum += tree.Nodes[c].Area
		}
		assert.Equal(t, tree.Nodes[i].Area, sum, "node %d", i)
	}

	assert.Equal(t, 8*5.0+9, tree.Nodes[plateau].Sum)
	assert.Equal(t, 9.0, tree.Nodes[plateau].Peak)
	assert.Equal(t, int32(12), tree.Nodes[plateau].PeakPixel)
	assert.Equal(t, [4]int{1, 1, 3, 3}, [4]int{
		tree.Nodes[plateau].MinX, tree.Nodes[plateau].MinY,
		tree.Nodes[plateau].MaxX, tree.Nodes[plateau].MaxY,
	})
	assert.Equal(t, 3, tree.Depth())
	assert.Equal(t, 1, tree.Leaves())
}

func TestBuild_DarkPolarityMirrorsBright(t *testing.T) {
	img := plateauImage[float64]()
	neg := make([]float64, len(img.Pix))
	for i, v := range img.Pix {
		neg[i] = -v
	}

	tree, err := Build(Image[float64]{Width: 5, Height: 5, Pix: neg}, Eight, Dark)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	require.Equal(t, 3, tree.Len())

	valley := nodeAtLevel(t, tree, -9.0)
	assert.Equal(t, 1, tree.Nodes[valley].Area)
	assert.Equal(t, -9.0, tree.Nodes[tree.Root].Peak)
	assert.Equal(t, 0.0, tree.Nodes[tree.Root].Level)
}

func TestBuild_Connectivity(t *testing.T) {
	img := Image[float64]{Width: 3, Height: 3, Pix: []float64{
		5, 0, 0,
		0, 5, 0,
		0, 0, 0,
	}}

	four, err := Build(img, Four, Bright)
	require.NoError(t, err)
	require.NoError(t, four.Validate())
	assert.Equal(t, 3, four.Len(), "diagonal peaks stay separate with 4-connectivity")

	eight, err := Build(img, Eight, Bright)
	require.NoError(t, err)
	require.NoError(t, eight.Validate())
	assert.Equal(t, 2, eight.Len(), "diagonal peaks merge with 8-connectivity")
}

func TestBuild_UniformImageSingleNode(t *testing.T) {
	pix := make([]float32, 64)
	for i := range pix {
		pix[i] = 3
	}
	tree, err := Build(Image[float32]{Width: 8, Height: 8, Pix: pix}, Eight, Bright)
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, 64, tree.Nodes[tree.Root].DirectArea)
}

func TestBuild_RandomInvariants(t *testing.T) {
	for _, tc := range []struct {
		name     string
		seed     int64
		conn     Connectivity
		polarity Polarity
	}{
		{"bright-8", 1, Eight, Bright},
		{"bright-4", 2, Four, Bright},
		{"dark-8", 3, Eight, Dark},
		{"dark-4", 4, Four, Dark},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img := randomImage(tc.seed, 23, 17, 6)
			tree, err := Build(img, tc.conn, tc.polarity)
			require.NoError(t, err)
			require.NoError(t, tree.Validate())

			// Each pixel sits at its owner's level.
			for p, n := range tree.Owner {
				require.Equal(t, img.Pix[p], tree.Nodes[n].Level, "pixel %d", p)
			}

			// Subtree pixel enumeration agrees with the recorded area.
			for i := range tree.Nodes {
				px := tree.SubtreePixels(int32(i))
				require.Len(t, px, tree.Nodes[i].Area, "node %d", i)
				for _, p := range px {
					require.False(t, MoreExtreme(tc.polarity, tree.Nodes[i].Level, img.Pix[p]),
						"pixel %d below node %d level", p, i)
				}
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	img := randomImage(11, 31, 29, 8)
	a, err := Build(img, Eight, Bright)
	require.NoError(t, err)
	b, err := Build(img, Eight, Bright)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("trees differ between runs (-first +second):\n%s", diff)
	}
}

func TestBuild_PrecisionParity(t *testing.T) {
	img := randomImage(5, 20, 20, 10)
	t64, err := Build(img, Eight, Bright)
	require.NoError(t, err)
	t32, err := Build(Convert[float32](img), Eight, Bright)
	require.NoError(t, err)

	require.Equal(t, t64.Len(), t32.Len())
	assert.Equal(t, t64.Owner, t32.Owner)
	assert.Equal(t, t64.Order, t32.Order)
	for i := range t64.Nodes {
		assert.Equal(t, t64.Nodes[i].Area, t32.Nodes[i].Area, "node %d", i)
		assert.Equal(t, t64.Nodes[i].Parent, t32.Nodes[i].Parent, "node %d", i)
	}
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	good := plateauImage[float64]()
	tests := []struct {
		name string
		img  Image[float64]
		conn Connectivity
		pol  Polarity
		want error
	}{
		{"empty", Image[float64]{}, Eight, Bright, ErrEmptyImage},
		{"negative width", Image[float64]{Width: -1, Height: 2}, Eight, Bright, ErrEmptyImage},
		{"short pixels", Image[float64]{Width: 5, Height: 5, Pix: good.Pix[:10]}, Eight, Bright, ErrDimensions},
		{"nan", Image[float64]{Width: 1, Height: 2, Pix: []float64{1, math.NaN()}}, Eight, Bright, ErrNonFinite},
		{"inf", Image[float64]{Width: 2, Height: 1, Pix: []float64{math.Inf(1), 1}}, Eight, Bright, ErrNonFinite},
		{"connectivity 6", good, Connectivity(6), Bright, ErrConnectivity},
		{"polarity", good, Eight, Polarity(7), ErrPolarity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(tt.img, tt.conn, tt.pol)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, tree)
		})
	}
}

func TestNewImage(t *testing.T) {
	img, err := NewImage(2, 3, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, float32(6), img.At(1, 2))
	x, y := img.Coords(3)
	assert.Equal(t, [2]int{1, 1}, [2]int{x, y})

	_, err = NewImage(2, 2, []float32{1})
	assert.ErrorIs(t, err, ErrDimensions)
}

func TestBuildContext_Cancelled(t *testing.T) {
	b, err := NewBuilder[float64](Eight, Bright)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := b.BuildContext(ctx, randomImage(3, 100, 100, 50))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tree)
}

func TestParsePolarity(t *testing.T) {
	tests := []struct {
		in      string
		want    Polarity
		wantErr bool
	}{
		{"bright", Bright, false},
		{"max", Bright, false},
		{"", Bright, false},
		{"dark", Dark, false},
		{"min", Dark, false},
		{"sideways", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolarity(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPolarity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
