// Package rimage holds the image types the color map optimizer samples from: float color and gray
// images, depth maps, masks and their filters.
package rimage

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// Gray conversion weights (ITU-R BT.601 luma).
const (
	grayWeightR = 0.299
	grayWeightG = 0.587
	grayWeightB = 0.114
)

// Image is a decoded color image with float RGB channels in [0, 1].
type Image struct {
	data          []colorful.Color
	width, height int
}

// NewImage returns a black width x height image.
func NewImage(width, height int) *Image {
	return &Image{
		data:   make([]colorful.Color, width*height),
		width:  width,
		height: height,
	}
}

// NewImageFromStdImage converts any decoded image into an Image. Alpha is ignored.
func NewImageFromStdImage(img image.Image) *Image {
	bounds := img.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			out.data[out.kxy(x, y)] = toColorful(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

func toColorful(c color.Color) colorful.Color {
	// MakeColor fails only for fully transparent pixels; treat those as their unpremultiplied RGB.
	if cc, ok := colorful.MakeColor(c); ok {
		return cc
	}
	r, g, b, _ := c.RGBA()
	return colorful.Color{R: float64(r) / 65535, G: float64(g) / 65535, B: float64(b) / 65535}
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// Width returns the horizontal size of the image.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical size of the image.
func (i *Image) Height() int {
	return i.height
}

// Bounds returns the rectangle covering the image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.data[i.kxy(x, y)]
}

// GetXY returns the color at (x, y).
func (i *Image) GetXY(x, y int) colorful.Color {
	return i.data[i.kxy(x, y)]
}

// SetXY sets the color at (x, y).
func (i *Image) SetXY(x, y int, c colorful.Color) {
	i.data[i.kxy(x, y)] = c
}

// Gray returns the luma of the image as a FloatImage.
func (i *Image) Gray() *FloatImage {
	gray := make([]float64, len(i.data))
	for k, c := range i.data {
		gray[k] = Luma(c)
	}
	return NewFloatImageFromDense(mat.NewDense(i.height, i.width, gray))
}

// Luma returns the gray intensity of c.
func Luma(c colorful.Color) float64 {
	return grayWeightR*c.R + grayWeightG*c.G + grayWeightB*c.B
}

// Sample returns the bilinearly interpolated color at fractional coordinates (u, v).
func (i *Image) Sample(u, v float64) (colorful.Color, error) {
	x0, y0, du, dv, err := bilinearWeights(u, v, i.width, i.height)
	if err != nil {
		return colorful.Color{}, err
	}
	k := i.kxy(x0, y0)
	c00, c10 := i.data[k], i.data[k+1]
	c01, c11 := i.data[k+i.width], i.data[k+i.width+1]
	w00, w10 := (1-du)*(1-dv), du*(1-dv)
	w01, w11 := (1-du)*dv, du*dv
	return colorful.Color{
		R: c00.R*w00 + c10.R*w10 + c01.R*w01 + c11.R*w11,
		G: c00.G*w00 + c10.G*w10 + c01.G*w01 + c11.G*w11,
		B: c00.B*w00 + c10.B*w10 + c01.B*w01 + c11.B*w11,
	}, nil
}
