package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

func TestToRaster_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(2, 1, color.Gray{Y: 77})

	r := ToRaster(img)
	if r.Width != 4 || r.Height != 3 || len(r.Pix) != 12 {
		t.Fatalf("shape: got %dx%d with %d pixels", r.Width, r.Height, len(r.Pix))
	}
	if got := r.At(2, 1); got != 77 {
		t.Errorf("At(2,1): got %v, want 77", got)
	}
	if got := r.At(0, 0); got != 0 {
		t.Errorf("At(0,0): got %v, want 0", got)
	}
}

func TestToRaster_Gray16KeepsNativeRange(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(1, 1, color.Gray16{Y: 51234})

	r := ToRaster(img)
	if got := r.At(1, 1); got != 51234 {
		t.Errorf("At(1,1): got %v, want 51234", got)
	}
}

func TestToRaster_RGBA64(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 2, 1))
	img.SetRGBA64(0, 0, color.RGBA64{R: 30000, G: 30000, B: 30000, A: 0xffff})

	r := ToRaster(img)
	if got := r.At(0, 0); got != 30000 {
		t.Errorf("At(0,0): got %v, want 30000", got)
	}
}

func TestToRaster_ColorUsesLuminance(t *testing.T) {
	img := createInMemoryImage(3, 3, color.RGBA{100, 100, 100, 255})
	img.SetRGBA(1, 1, color.RGBA{255, 0, 0, 255})

	r := ToRaster(img)
	if got := r.At(0, 0); got != 100 {
		t.Errorf("gray pixel: got %v, want 100", got)
	}
	red := r.At(1, 1)
	if red <= 0 || red >= 255 {
		t.Errorf("red luminance: got %v, want strictly between 0 and 255", red)
	}
}

func TestToRaster_OffsetBounds(t *testing.T) {
	img := image.NewGray(image.Rect(10, 20, 13, 22))
	img.SetGray(10, 20, color.Gray{Y: 9})

	r := ToRaster(img)
	if r.Width != 3 || r.Height != 2 {
		t.Fatalf("shape: got %dx%d, want 3x2", r.Width, r.Height)
	}
	if got := r.At(0, 0); got != 9 {
		t.Errorf("At(0,0): got %v, want 9", got)
	}
}

func TestStretch(t *testing.T) {
	pix := make([]float64, 100)
	for i := range pix {
		pix[i] = float64(i)
	}
	r := maxtree.Image[float64]{Width: 10, Height: 10, Pix: pix}

	out := Stretch(r, 0, 100)
	if out.Pix[0] != 0 {
		t.Errorf("lowest value: got %d, want 0", out.Pix[0])
	}
	if out.Pix[99] != 255 {
		t.Errorf("highest value: got %d, want 255", out.Pix[99])
	}
	for i := 1; i < len(out.Pix); i++ {
		if out.Pix[i] < out.Pix[i-1] {
			t.Fatalf("stretch is not monotonic at %d", i)
		}
	}
}

func TestStretch_Flat(t *testing.T) {
	r := maxtree.Image[float64]{Width: 2, Height: 2, Pix: []float64{5, 5, 5, 5}}
	out := Stretch(r, DefaultLowPercentile, DefaultHighPercentile)
	for i, v := range out.Pix {
		if v != 0 {
			t.Errorf("pixel %d: got %d, want 0", i, v)
		}
	}
}

func TestStretch_IgnoresNaN(t *testing.T) {
	r := maxtree.Image[float64]{Width: 3, Height: 1, Pix: []float64{0, math.NaN(), 10}}
	out := Stretch(r, 0, 100)
	if out.Pix[0] != 0 || out.Pix[1] != 0 || out.Pix[2] != 255 {
		t.Errorf("got %v, want [0 0 255]", out.Pix)
	}
}
