package objects

// BBox is an inclusive pixel bounding box.
type BBox struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Width returns the box width in pixels.
func (b BBox) Width() int { return b.MaxX - b.MinX + 1 }

// Height returns the box height in pixels.
func (b BBox) Height() int { return b.MaxY - b.MinY + 1 }

// Contains reports whether (x, y) lies inside the box.
func (b BBox) Contains(x, y int) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// DetectedObject is one catalog entry.
type DetectedObject struct {
	// ID numbers objects from 1 in catalog order; it is the object's value
	// in the label map.
	ID int `json:"id"`

	// Node is the tree node the object was rendered from.
	Node int32 `json:"node"`

	Area    int     `json:"area"`
	Flux    float64 `json:"flux"`
	RawFlux float64 `json:"raw_flux"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	XX float64 `json:"xx"`
	YY float64 `json:"yy"`
	XY float64 `json:"xy"`

	A     float64 `json:"a"`
	B     float64 `json:"b"`
	Theta float64 `json:"theta"`

	BBox BBox `json:"bbox"`

	Peak      float64 `json:"peak"`
	PeakX     int     `json:"peak_x"`
	PeakY     int     `json:"peak_y"`
	PeakPixel int     `json:"-"`

	// Background is the local background level in measurement units.
	Background float64 `json:"background"`

	// Significance is the node's test statistic over its critical value.
	Significance float64 `json:"significance"`

	// Deblended is set when the object was split out of a larger
	// significant parent.
	Deblended bool `json:"deblended"`
}
