package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/mto-mcp/internal/objects"
)

// createPatternImage creates a 4-quadrant test image: red top-left, green
// top-right, blue bottom-left, white bottom-right.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// decodeResult decodes the PNG carried by a result.
func decodeResult(t *testing.T, res *PNGResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, 0, 0, 50, 50, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	decodeResult(t, result)
}

func TestCrop_WithScale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := Crop(img, 0, 0, 50, 50, 2.0)
	if err != nil {
		t.Fatalf("Crop with scale failed: %v", err)
	}
	if result.Width != 100 || result.Height != 100 {
		t.Errorf("scaled dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
}

func TestCrop_ScaleDown(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := Crop(img, 0, 0, 100, 100, 0.5)
	if err != nil {
		t.Fatalf("Crop with scale down failed: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("scaled dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 negative", -1, 0, 50, 50},
		{"y1 negative", 0, -1, 50, 50},
		{"x2 too large", 0, 0, 101, 50},
		{"y2 too large", 0, 0, 50, 101},
		{"all out of bounds", -1, -1, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0)
			if err == nil {
				t.Error("Crop should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 >= x2", 50, 0, 50, 50},
		{"x1 > x2", 60, 0, 50, 50},
		{"y1 >= y2", 0, 50, 50, 50},
		{"zero area", 50, 50, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0)
			if err == nil {
				t.Error("Crop should fail for invalid region")
			}
		})
	}
}

func TestCrop_VerifyContent(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		want           color.RGBA
	}{
		{"top-left", 0, 0, 50, 50, color.RGBA{255, 0, 0, 255}},
		{"top-right", 50, 0, 100, 50, color.RGBA{0, 255, 0, 255}},
		{"bottom-left", 0, 50, 50, 100, color.RGBA{0, 0, 255, 255}},
		{"bottom-right", 50, 50, 100, 100, color.RGBA{255, 255, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			got := color.RGBAModel.Convert(decodeResult(t, result).At(25, 25)).(color.RGBA)
			if got != tt.want {
				t.Errorf("color: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCutout(t *testing.T) {
	r := ToRaster(createStarField(40, 30, 20, 15))
	obj := objects.DetectedObject{ID: 3, BBox: objects.BBox{MinX: 19, MinY: 14, MaxX: 21, MaxY: 16}}

	res, err := Cutout(r, obj, 4, 1)
	if err != nil {
		t.Fatalf("Cutout failed: %v", err)
	}
	if res.ObjectID != 3 {
		t.Errorf("ObjectID: got %d, want 3", res.ObjectID)
	}
	if res.X1 != 15 || res.Y1 != 10 || res.X2 != 26 || res.Y2 != 21 {
		t.Errorf("region: got (%d,%d)-(%d,%d), want (15,10)-(26,21)", res.X1, res.Y1, res.X2, res.Y2)
	}
	if res.Width != 11 || res.Height != 11 {
		t.Errorf("dimensions: got %dx%d, want 11x11", res.Width, res.Height)
	}

	stamp := decodeResult(t, &res.PNGResult)
	center := color.GrayModel.Convert(stamp.At(5, 5)).(color.Gray)
	corner := color.GrayModel.Convert(stamp.At(0, 0)).(color.Gray)
	if center.Y != 255 || corner.Y != 0 {
		t.Errorf("stretch: center %d corner %d, want 255 and 0", center.Y, corner.Y)
	}
}

func TestCutout_ClipsToImage(t *testing.T) {
	r := ToRaster(createStarField(20, 20, 1, 1))
	obj := objects.DetectedObject{ID: 1, BBox: objects.BBox{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}}

	res, err := Cutout(r, obj, 5, 2)
	if err != nil {
		t.Fatalf("Cutout failed: %v", err)
	}
	if res.X1 != 0 || res.Y1 != 0 || res.X2 != 8 || res.Y2 != 8 {
		t.Errorf("region: got (%d,%d)-(%d,%d), want (0,0)-(8,8)", res.X1, res.Y1, res.X2, res.Y2)
	}
	if res.Width != 16 || res.Height != 16 {
		t.Errorf("scaled dimensions: got %dx%d, want 16x16", res.Width, res.Height)
	}
}

func TestCutout_NegativeMargin(t *testing.T) {
	r := ToRaster(createStarField(10, 10, 5, 5))
	if _, err := Cutout(r, objects.DetectedObject{}, -1, 1); err == nil {
		t.Error("Cutout should fail for a negative margin")
	}
}
