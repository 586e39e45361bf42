package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/mto-mcp/internal/objects"
)

var (
	// ErrUnknownField is returned for an attribute name Values cannot read.
	ErrUnknownField = errors.New("catalog: unknown field")
	// ErrNoValues is returned when a catalog has nothing to summarise.
	ErrNoValues = errors.New("catalog: no values")
)

// Field names a numeric object attribute.
type Field string

const (
	FieldFlux         Field = "flux"
	FieldArea         Field = "area"
	FieldPeak         Field = "peak"
	FieldA            Field = "a"
	FieldB            Field = "b"
	FieldElongation   Field = "elongation"
	FieldSignificance Field = "significance"
)

var fields = []Field{FieldFlux, FieldArea, FieldPeak, FieldA, FieldB, FieldElongation, FieldSignificance}

// ParseField accepts a field name in any case.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Fields lists every supported field in display order.
func Fields() []Field {
	return append([]Field(nil), fields...)
}

// Values extracts f from each object in catalog order. Non-finite values,
// such as the elongation of a one-pixel object, are skipped.
func Values(objs []objects.DetectedObject, f Field) ([]float64, error) {
	get, err := accessor(f)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(objs))
	for _, o := range objs {
		v := get(o)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func accessor(f Field) (func(objects.DetectedObject) float64, error) {
	switch f {
	case FieldFlux:
		return func(o objects.DetectedObject) float64 { return o.Flux }, nil
	case FieldArea:
		return func(o objects.DetectedObject) float64 { return float64(o.Area) }, nil
	case FieldPeak:
		return func(o objects.DetectedObject) float64 { return o.Peak }, nil
	case FieldA:
		return func(o objects.DetectedObject) float64 { return o.A }, nil
	case FieldB:
		return func(o objects.DetectedObject) float64 { return o.B }, nil
	case FieldElongation:
		return func(o objects.DetectedObject) float64 {
			if o.B == 0 {
				return math.Inf(1)
			}
			return o.A / o.B
		}, nil
	case FieldSignificance:
		return func(o objects.DetectedObject) float64 { return o.Significance }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, string(f))
}

// Summary describes the distribution of one field over a catalog.
type Summary struct {
	Field  Field   `json:"field"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`

	// StdDev is the sample standard deviation, zero for a single value.
	StdDev float64 `json:"std_dev"`

	// Total is the sum of the values. For flux it is the catalog's total
	// background-subtracted flux.
	Total float64 `json:"total"`
}

// Summarize computes a Summary of f over objs.
func Summarize(objs []objects.DetectedObject, f Field) (Summary, error) {
	vals, err := Values(objs, f)
	if err != nil {
		return Summary{}, err
	}
	return summarizeValues(f, vals)
}

func summarizeValues(f Field, vals []float64) (Summary, error) {
	if len(vals) == 0 {
		return Summary{}, fmt.Errorf("%w for field %s", ErrNoValues, f)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	s := Summary{
		Field:  f,
		Count:  len(vals),
		Min:    floats.Min(vals),
		Max:    floats.Max(vals),
		Mean:   stat.Mean(vals, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Total:  floats.Sum(vals),
	}
	if len(vals) > 1 {
		s.StdDev = stat.StdDev(vals, nil)
	}
	return s, nil
}
