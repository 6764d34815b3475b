package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// ErrSampleOutOfBounds is returned when the 2x2 neighborhood needed for bilinear interpolation
// is not fully inside an image.
var ErrSampleOutOfBounds = errors.New("sample point is outside of the image")

// FloatImage is a single channel image of float64 values. Rows of the backing matrix are image
// rows, so pixel (x, y) is element (y, x).
type FloatImage struct {
	data *mat.Dense
}

// NewFloatImage returns a zeroed width x height image.
func NewFloatImage(width, height int) *FloatImage {
	return &FloatImage{data: mat.NewDense(height, width, nil)}
}

// NewFloatImageFromDense wraps m without copying it.
func NewFloatImageFromDense(m *mat.Dense) *FloatImage {
	return &FloatImage{data: m}
}

// Dense returns the backing matrix.
func (fi *FloatImage) Dense() *mat.Dense {
	return fi.data
}

// Width returns the horizontal size of the image.
func (fi *FloatImage) Width() int {
	_, c := fi.data.Dims()
	return c
}

// Height returns the vertical size of the image.
func (fi *FloatImage) Height() int {
	r, _ := fi.data.Dims()
	return r
}

// Bounds returns the rectangle covering the image.
func (fi *FloatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, fi.Width(), fi.Height())
}

// In reports whether (x, y) is a pixel of the image.
func (fi *FloatImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < fi.Width() && y < fi.Height()
}

// At returns the value at (x, y).
func (fi *FloatImage) At(x, y int) float64 {
	return fi.data.At(y, x)
}

// Set sets the value at (x, y).
func (fi *FloatImage) Set(x, y int, v float64) {
	fi.data.Set(y, x, v)
}

// bilinearWeights returns the top-left pixel and fractional offsets for a sample at (u, v), or
// ErrSampleOutOfBounds when the 2x2 neighborhood leaves a width x height image.
func bilinearWeights(u, v float64, width, height int) (int, int, float64, float64, error) {
	if math.IsNaN(u) || math.IsNaN(v) {
		return 0, 0, 0, 0, ErrSampleOutOfBounds
	}
	fu, fv := math.Floor(u), math.Floor(v)
	if fu < 0 || fv < 0 || fu+1 >= float64(width) || fv+1 >= float64(height) {
		return 0, 0, 0, 0, ErrSampleOutOfBounds
	}
	return int(fu), int(fv), u - fu, v - fv, nil
}

// bilinear interpolates a row-major matrix at the cell (x0, y0) with offsets du, dv.
func bilinear(raw blas64.General, x0, y0 int, du, dv float64) float64 {
	i := y0*raw.Stride + x0
	top := raw.Data[i]*(1-du) + raw.Data[i+1]*du
	bottom := raw.Data[i+raw.Stride]*(1-du) + raw.Data[i+raw.Stride+1]*du
	return top*(1-dv) + bottom*dv
}

// Bilinear returns the bilinearly interpolated value at fractional coordinates (u, v).
func (fi *FloatImage) Bilinear(u, v float64) (float64, error) {
	x0, y0, du, dv, err := bilinearWeights(u, v, fi.Width(), fi.Height())
	if err != nil {
		return 0, err
	}
	return bilinear(fi.data.RawMatrix(), x0, y0, du, dv), nil
}
