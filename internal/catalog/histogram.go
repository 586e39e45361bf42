package catalog

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/mto-mcp/internal/objects"
)

// HistogramOptions controls Histogram.
type HistogramOptions struct {
	// Bins is the number of bins. Zero picks roughly sqrt(n).
	Bins int

	// Log bins log10 of the values. Non-positive values are dropped.
	Log bool

	// Width and Height of the rendered image. Zero uses 6x4 inches.
	Width, Height vg.Length

	// Title overrides the default plot title.
	Title string
}

// Bin is one histogram bar, [Min, Max).
type Bin struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// HistogramResult is a rendered histogram and the bins behind it.
type HistogramResult struct {
	Field   Field   `json:"field"`
	Log     bool    `json:"log"`
	Bins    []Bin   `json:"bins"`
	Summary Summary `json:"summary"`

	// Dropped counts values excluded by the log scale.
	Dropped int `json:"dropped"`

	PNG []byte `json:"-"`
}

// Histogram bins field f of objs and renders the result as a PNG.
//
// Parameters:
//   - objs: The catalog to plot.
//   - f: The attribute to histogram.
//   - opts: Binning and image size.
//
// Returns:
//   - *HistogramResult: The bins, a summary of the plotted values and the
//     encoded PNG.
//   - error: ErrUnknownField, ErrNoValues, or a rendering failure.
func Histogram(objs []objects.DetectedObject, f Field, opts HistogramOptions) (*HistogramResult, error) {
	if opts.Bins < 0 {
		return nil, fmt.Errorf("bins must be non-negative, got %d", opts.Bins)
	}
	vals, err := Values(objs, f)
	if err != nil {
		return nil, err
	}

	dropped := 0
	if opts.Log {
		logged := vals[:0:0]
		for _, v := range vals {
			if v <= 0 {
				dropped++
				continue
			}
			logged = append(logged, math.Log10(v))
		}
		vals = logged
	}

	summary, err := summarizeValues(f, vals)
	if err != nil {
		return nil, err
	}

	h, err := plotter.NewHist(plotter.Values(vals), opts.Bins)
	if err != nil {
		return nil, fmt.Errorf("failed to bin %s: %w", f, err)
	}
	h.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	h.LineStyle.Width = vg.Points(0.5)

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s (%d objects)", f, summary.Count)
	}
	p.X.Label.Text = string(f)
	if opts.Log {
		p.X.Label.Text = "log10 " + string(f)
	}
	p.Y.Label.Text = "Count"
	p.Add(h)

	w, ht := opts.Width, opts.Height
	if w <= 0 {
		w = 6 * vg.Inch
	}
	if ht <= 0 {
		ht = 4 * vg.Inch
	}
	wt, err := p.WriterTo(w, ht, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render histogram: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode histogram: %w", err)
	}

	bins := make([]Bin, len(h.Bins))
	for i, b := range h.Bins {
		bins[i] = Bin{Min: b.Min, Max: b.Max, Count: int(math.Round(b.Weight))}
	}

	return &HistogramResult{
		Field:   f,
		Log:     opts.Log,
		Bins:    bins,
		Summary: summary,
		Dropped: dropped,
		PNG:     buf.Bytes(),
	}, nil
}
