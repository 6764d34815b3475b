package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/colormap/utils"
)

// Depth is the depth of a pixel in millimeters. Zero means no reading.
type Depth uint16

// MaxDepth is the largest representable depth.
const MaxDepth = Depth(65535)

// MillimetersPerMeter converts Depth units to meters.
const MillimetersPerMeter = 1000.0

// DepthMap is a per-pixel depth image stored row-major.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a width x height depth map with no readings.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// ConvertImageToDepthMap takes an image and figures out if it's already a DepthMap or a 16 bit
// gray image holding millimeters, and converts it.
func ConvertImageToDepthMap(img image.Image) (*DepthMap, error) {
	switch ii := img.(type) {
	case *DepthMap:
		return ii, nil
	case *image.Gray16:
		return gray16ToDepthMap(ii), nil
	case nil:
		return nil, errors.New("cannot convert nil image to depth map")
	default:
		if img.ColorModel() != color.Gray16Model {
			return nil, errors.Errorf("don't know how to make DepthMap from %T", img)
		}
		bounds := img.Bounds()
		dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				//nolint:forcetypeassert
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				dm.Set(x, y, Depth(g.Y))
			}
		}
		return dm, nil
	}
}

func gray16ToDepthMap(img *image.Gray16) *DepthMap {
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.Set(x, y, Depth(img.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
		}
	}
	return dm
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// Width returns the horizontal size of the DepthMap.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical size of the DepthMap.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle dimensions of the image.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// ColorModel for DepthMap so that it implements image.Image.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// At returns the depth as a color.Gray16 so that DepthMap implements image.Image.
func (dm *DepthMap) At(x, y int) color.Color {
	return color.Gray16{uint16(dm.GetDepth(x, y))}
}

// In reports whether (x, y) is a pixel of the map.
func (dm *DepthMap) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the depth at (x, y) in millimeters.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at (x, y).
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// MetersAt returns the depth at (x, y) in meters; 0 means no reading.
func (dm *DepthMap) MetersAt(x, y int) float64 {
	return float64(dm.data[dm.kxy(x, y)]) / MillimetersPerMeter
}

// MetersImage returns the whole map in meters.
func (dm *DepthMap) MetersImage() *FloatImage {
	meters := make([]float64, len(dm.data))
	for k, d := range dm.data {
		meters[k] = float64(d) / MillimetersPerMeter
	}
	return NewFloatImageFromDense(mat.NewDense(dm.height, dm.width, meters))
}

// ToGray16 returns the depth map as a 16 bit gray image of millimeters.
func (dm *DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(dm.Bounds())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			img.SetGray16(x, y, color.Gray16{uint16(dm.GetDepth(x, y))})
		}
	}
	return img
}

// DepthFromMeters converts meters to Depth, saturating at MaxDepth.
func DepthFromMeters(meters float64) Depth {
	return Depth(utils.ClampF64(meters*MillimetersPerMeter+0.5, 0, float64(MaxDepth)))
}
