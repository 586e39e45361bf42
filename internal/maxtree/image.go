package maxtree

import (
	"errors"
	"fmt"
	"math"
)

// Float is the set of pixel types a tree can be built over.
type Float interface {
	~float32 | ~float64
}

// Configuration errors. They are always reported before any pixel is
// processed.
var (
	ErrEmptyImage   = errors.New("maxtree: empty image")
	ErrDimensions   = errors.New("maxtree: pixel count does not match dimensions")
	ErrNonFinite    = errors.New("maxtree: image contains non-finite values")
	ErrConnectivity = errors.New("maxtree: connectivity must be 4 or 8")
	ErrPolarity     = errors.New("maxtree: unknown polarity")
)

// Image is a read-only, row-major raster of intensity values.
type Image[T Float] struct {
	Width  int
	Height int
	Pix    []T
}

// NewImage wraps pix as a width x height image after checking the dimensions.
// The slice is not copied.
func NewImage[T Float](width, height int, pix []T) (Image[T], error) {
	img := Image[T]{Width: width, Height: height, Pix: pix}
	if err := img.Validate(); err != nil {
		return Image[T]{}, err
	}
	return img, nil
}

// Validate reports whether the image is rectangular and non-empty.
func (img Image[T]) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height {
		return fmt.Errorf("%w: %dx%d needs %d pixels, got %d",
			ErrDimensions, img.Width, img.Height, img.Width*img.Height, len(img.Pix))
	}
	return nil
}

// At returns the value at (x, y). No bounds checking is performed.
func (img Image[T]) At(x, y int) T {
	return img.Pix[y*img.Width+x]
}

// Len returns the number of pixels.
func (img Image[T]) Len() int {
	return len(img.Pix)
}

// Coords converts a pixel index to (x, y).
func (img Image[T]) Coords(p int) (x, y int) {
	return p % img.Width, p / img.Width
}

// Convert copies an image into another precision.
func Convert[D, S Float](src Image[S]) Image[D] {
	pix := make([]D, len(src.Pix))
	for i, v := range src.Pix {
		pix[i] = D(v)
	}
	return Image[D]{Width: src.Width, Height: src.Height, Pix: pix}
}

func checkFinite[T Float](pix []T) error {
	for i, v := range pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: pixel %d is %v", ErrNonFinite, i, f)
		}
	}
	return nil
}

// Polarity selects which end of the intensity scale the tree grows toward.
type Polarity int

const (
	// Bright builds a max-tree: nodes are brighter than their parents.
	Bright Polarity = iota
	// Dark builds a min-tree: nodes are darker than their parents.
	Dark
)

// ParsePolarity accepts "bright"/"max" and "dark"/"min".
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "bright", "max", "":
		return Bright, nil
	case "dark", "min":
		return Dark, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrPolarity, s)
	}
}

func (p Polarity) String() string {
	switch p {
	case Bright:
		return "bright"
	case Dark:
		return "dark"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// Valid reports whether p is Bright or Dark.
func (p Polarity) Valid() bool {
	return p == Bright || p == Dark
}

// Sign is +1 for Bright and -1 for Dark.
func (p Polarity) Sign() float64 {
	if p == Dark {
		return -1
	}
	return 1
}

// MoreExtreme reports whether a lies strictly further toward the polarity's
// end of the scale than b.
func MoreExtreme[T Float](p Polarity, a, b T) bool {
	if p == Dark {
		return a < b
	}
	return a > b
}

// Connectivity is the pixel neighbourhood used when flooding.
type Connectivity int

const (
	// Four connects pixels sharing an edge.
	Four Connectivity = 4
	// Eight also connects diagonal neighbours.
	Eight Connectivity = 8
)

// Valid reports whether c is Four or Eight.
func (c Connectivity) Valid() bool {
	return c == Four || c == Eight
}

var (
	offsets4 = [][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
	offsets8 = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
)

func (c Connectivity) offsets() [][2]int {
	if c == Four {
		return offsets4
	}
	return offsets8
}
