package rimage

// GradientImages holds a smoothed gray image and its x and y derivatives, the inputs of the
// photometric sampler.
type GradientImages struct {
	Gray *FloatImage
	DX   *FloatImage
	DY   *FloatImage
}

// NewGradientImages smooths gray with a 3x3 Gaussian and takes Sobel derivatives of the result.
func NewGradientImages(gray *FloatImage) (*GradientImages, error) {
	smoothed, err := ConvolveFloat(gray, GetGaussian3())
	if err != nil {
		return nil, err
	}
	dx, err := ConvolveFloat(smoothed, GetSobelX())
	if err != nil {
		return nil, err
	}
	dy, err := ConvolveFloat(smoothed, GetSobelY())
	if err != nil {
		return nil, err
	}
	return &GradientImages{Gray: smoothed, DX: dx, DY: dy}, nil
}

// Width returns the horizontal size of the images.
func (gi *GradientImages) Width() int {
	return gi.Gray.Width()
}

// Height returns the vertical size of the images.
func (gi *GradientImages) Height() int {
	return gi.Gray.Height()
}

// Sample returns the bilinearly interpolated intensity and gradient at (u, v). It fails with
// ErrSampleOutOfBounds when the integer neighborhood of the point is outside the image.
func (gi *GradientImages) Sample(u, v float64) (value, dIdx, dIdy float64, err error) {
	x0, y0, du, dv, err := bilinearWeights(u, v, gi.Width(), gi.Height())
	if err != nil {
		return 0, 0, 0, err
	}
	return bilinear(gi.Gray.data.RawMatrix(), x0, y0, du, dv),
		bilinear(gi.DX.data.RawMatrix(), x0, y0, du, dv),
		bilinear(gi.DY.data.RawMatrix(), x0, y0, du, dv),
		nil
}
