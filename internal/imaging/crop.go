package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/mto-mcp/internal/maxtree"
	"github.com/ironsheep/mto-mcp/internal/objects"
)

// PNGResult is a rendered image encoded for transport.
type PNGResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func encodePNG(img image.Image) (*PNGResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &PNGResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts the region [x1,x2) x [y1,y2) from img and scales it.
// Enlargements use nearest-neighbour sampling so pixels stay visible;
// reductions use Lanczos.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*PNGResult, error) {
	bounds := img.Bounds()
	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		filter := imaging.Lanczos
		if scale > 1 {
			filter = imaging.NearestNeighbor
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, filter)
	}

	return encodePNG(cropped)
}

// CutoutResult is a stamp around one object.
type CutoutResult struct {
	PNGResult

	ObjectID int `json:"object_id"`

	// Region is the cropped area in source pixels, max exclusive.
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Cutout renders the neighbourhood of obj: its bounding box grown by margin
// pixels on each side and clipped to the image. The stamp uses the display
// stretch of the whole raster so stamps of one image are comparable.
func Cutout(r maxtree.Image[float64], obj objects.DetectedObject, margin int, scale float64) (*CutoutResult, error) {
	if margin < 0 {
		return nil, fmt.Errorf("margin must be non-negative, got %d", margin)
	}
	x1 := max(obj.BBox.MinX-margin, 0)
	y1 := max(obj.BBox.MinY-margin, 0)
	x2 := min(obj.BBox.MaxX+1+margin, r.Width)
	y2 := min(obj.BBox.MaxY+1+margin, r.Height)

	stamp, err := Crop(Stretch(r, DefaultLowPercentile, DefaultHighPercentile), x1, y1, x2, y2, scale)
	if err != nil {
		return nil, err
	}
	return &CutoutResult{
		PNGResult: *stamp,
		ObjectID:  obj.ID,
		X1:        x1,
		Y1:        y1,
		X2:        x2,
		Y2:        y2,
	}, nil
}
