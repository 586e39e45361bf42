package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/objects"
)

// Display stretch used by every rendering in this package.
const (
	DefaultLowPercentile  = 0.5
	DefaultHighPercentile = 99.5
)

// Palette returns n distinct, deterministic colors. Hues advance by the
// golden angle in HCL space so neighbouring IDs never look alike.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		hue := float64(i) * 137.50776
		for hue >= 360 {
			hue -= 360
		}
		r, g, b := colorful.Hcl(hue, 0.7, 0.7).Clamped().RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// SegmentationMap colours each labelled pixel with its object's palette
// colour. Label 0 is drawn black.
func SegmentationMap(labels []int32, width, height, count int) (*PNGResult, error) {
	if len(labels) != width*height {
		return nil, fmt.Errorf("label map has %d entries, want %dx%d", len(labels), width, height)
	}
	palette := Palette(count)
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for p, l := range labels {
		c := color.RGBA{A: 255}
		if l > 0 && int(l) <= count {
			c = palette[l-1]
		}
		out.SetRGBA(p%width, p/width, c)
	}
	return encodePNG(out)
}

// OverlayOptions controls Overlay.
type OverlayOptions struct {
	// BoxColor is a hex colour such as "#FF0000" or "#FF000080". Empty uses
	// the per-object palette.
	BoxColor string

	// ShowIDs draws each object's ID next to its box.
	ShowIDs bool
}

// OverlayResult is the stretched image with object boxes drawn on it.
type OverlayResult struct {
	PNGResult
	Objects int `json:"objects"`
}

// Overlay draws a one-pixel box around each object's bounding box and,
// optionally, its ID in a small bitmap font.
func Overlay(r maxtree.Image[float64], objs []objects.DetectedObject, opts OverlayOptions) (*OverlayResult, error) {
	result := imaging.Clone(Stretch(r, DefaultLowPercentile, DefaultHighPercentile))

	palette := Palette(len(objs))
	var fixed *color.RGBA
	if opts.BoxColor != "" {
		c, err := parseHexColor(opts.BoxColor)
		if err != nil {
			return nil, fmt.Errorf("invalid box color %q: %w", opts.BoxColor, err)
		}
		fixed = &c
	}

	labelColor := color.RGBA{255, 255, 255, 255}
	labelBg := color.RGBA{0, 0, 0, 180}
	for i, o := range objs {
		c := palette[i]
		if fixed != nil {
			c = *fixed
		}
		drawBox(result, o.BBox.MinX-1, o.BBox.MinY-1, o.BBox.MaxX+1, o.BBox.MaxY+1, c)
		if opts.ShowIDs {
			drawLabel(result, o.BBox.MaxX+3, o.BBox.MinY, strconv.Itoa(o.ID), labelColor, labelBg)
		}
	}

	enc, err := encodePNG(result)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{PNGResult: *enc, Objects: len(objs)}, nil
}

// drawBox draws the outline of the inclusive rectangle, clipped to img.
func drawBox(img draw.Image, x1, y1, x2, y2 int, c color.RGBA) {
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.Set(x, y, c)
		}
	}
	for x := x1; x <= x2; x++ {
		set(x, y1)
		set(x, y2)
	}
	for y := y1; y <= y2; y++ {
		set(x1, y)
		set(x2, y)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// digitGlyphs is a 3x5 bitmap font for object IDs.
var digitGlyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text on a filled background with its top-left corner at
// (x, y), clipped to img.
func drawLabel(img draw.Image, x, y int, text string, fg, bg color.RGBA) {
	bounds := img.Bounds()
	const charWidth, labelHeight = 4, 6
	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.Set(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range digitGlyphs[ch] {
			for col, pixel := range line {
				if p := image.Pt(cx+col, y+row); pixel == '1' && p.In(bounds) {
					img.Set(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
