package rimage

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/colormap/utils"
)

// Kernel is a 2D convolution kernel applied centered on each pixel.
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// At returns the kernel weight at column x, row y.
func (k Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel dimensions.
func (k Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// Normalize returns a copy of the kernel scaled by factor.
func (k Kernel) Normalize(factor float64) Kernel {
	content := make([][]float64, k.Height)
	for y := range content {
		content[y] = make([]float64, k.Width)
		for x := range content[y] {
			content[y][x] = k.Content[y][x] * factor
		}
	}
	return Kernel{content, k.Width, k.Height}
}

// GetSobelX returns the Sobel kernel in the x direction, scaled so the response is the
// per-pixel derivative.
func GetSobelX() Kernel {
	return Kernel{[][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	},
		3,
		3,
	}.Normalize(1. / 8.)
}

// GetSobelY returns the Sobel kernel in the y direction, scaled so the response is the
// per-pixel derivative.
func GetSobelY() Kernel {
	return Kernel{[][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	},
		3,
		3,
	}.Normalize(1. / 8.)
}

// GetGaussian3 returns the 3x3 binomial approximation of a Gaussian.
func GetGaussian3() Kernel {
	return Kernel{[][]float64{
		{1, 2, 1},
		{2, 4, 2},
		{1, 2, 1},
	},
		3,
		3,
	}.Normalize(1. / 16.)
}

// BorderPad selects how PaddingFloat64 fills the pixels outside an image.
type BorderPad int

// Border modes.
const (
	// BorderConstant pads with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the nearest edge pixel.
	BorderReplicate
	// BorderReflect mirrors the image about its edge, excluding the edge pixel itself.
	BorderReflect
)

// PaddingFloat64 returns m grown so that a kernel of kernelSize anchored at anchor can be applied
// at every pixel of m. Pixel (x, y) of m is element (y+anchor.Y, x+anchor.X) of the result.
func PaddingFloat64(m *mat.Dense, kernelSize, anchor image.Point, border BorderPad) (*mat.Dense, error) {
	h, w := m.Dims()
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v is outside of kernel of size %v", anchor, kernelSize)
	}
	ph, pw := h+kernelSize.Y-1, w+kernelSize.X-1
	padded := mat.NewDense(ph, pw, nil)
	for py := 0; py < ph; py++ {
		for px := 0; px < pw; px++ {
			x, y := px-anchor.X, py-anchor.Y
			switch border {
			case BorderConstant:
				if x < 0 || y < 0 || x >= w || y >= h {
					continue
				}
			case BorderReplicate:
				x = utils.ClampInt(x, 0, w-1)
				y = utils.ClampInt(y, 0, h-1)
			case BorderReflect:
				x = utils.ClampInt(reflectIndex(x, w), 0, w-1)
				y = utils.ClampInt(reflectIndex(y, h), 0, h-1)
			default:
				return nil, errors.Errorf("unknown border mode %d", border)
			}
			padded.Set(py, px, m.At(y, x))
		}
	}
	return padded, nil
}

func reflectIndex(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*(n-1) - i
	}
	return i
}

// ConvolveGrayFloat64 applies the kernel centered on every element of m, padding with border.
// There is no clamping of the result.
func ConvolveGrayFloat64(m *mat.Dense, filter Kernel, border BorderPad) (*mat.Dense, error) {
	h, w := m.Dims()
	kernelSize := filter.Size()
	padded, err := PaddingFloat64(m, kernelSize, image.Point{kernelSize.X / 2, kernelSize.Y / 2}, border)
	if err != nil {
		return nil, err
	}
	result := mat.NewDense(h, w, nil)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		sum := 0.0
		for ky := 0; ky < kernelSize.Y; ky++ {
			for kx := 0; kx < kernelSize.X; kx++ {
				sum += padded.At(y+ky, x+kx) * filter.At(kx, ky)
			}
		}
		result.Set(y, x, sum)
	})
	return result, nil
}

// ConvolveFloat applies the kernel to the image, replicating edge pixels past the border.
func ConvolveFloat(img *FloatImage, kernel Kernel) (*FloatImage, error) {
	out, err := ConvolveGrayFloat64(img.data, kernel, BorderReplicate)
	if err != nil {
		return nil, err
	}
	return NewFloatImageFromDense(out), nil
}
