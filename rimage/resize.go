package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/colormap/utils"
)

// DownsampleImage shrinks a color image by an integer factor with a box filter. A factor of 1
// returns the input.
func DownsampleImage(img image.Image, factor int) (image.Image, error) {
	if factor < 1 {
		return nil, errors.Errorf("downsample factor must be at least 1, got %d", factor)
	}
	if factor == 1 {
		return img, nil
	}
	b := img.Bounds()
	w, h := b.Dx()/factor, b.Dy()/factor
	if w == 0 || h == 0 {
		return nil, errors.Errorf("image of size %dx%d is too small to downsample by %d", b.Dx(), b.Dy(), factor)
	}
	return imaging.Resize(img, w, h, imaging.Box), nil
}

// DownsampleDepthMap shrinks a depth map by an integer factor, keeping the center pixel of every
// factor x factor block. Depths are copied, never blended, so no depth is invented across
// discontinuities or holes.
func DownsampleDepthMap(dm *DepthMap, factor int) (*DepthMap, error) {
	if factor < 1 {
		return nil, errors.Errorf("downsample factor must be at least 1, got %d", factor)
	}
	if factor == 1 {
		return dm, nil
	}
	w, h := dm.Width()/factor, dm.Height()/factor
	if w == 0 || h == 0 {
		return nil, errors.Errorf("depth map of size %dx%d is too small to downsample by %d", dm.Width(), dm.Height(), factor)
	}
	small := NewEmptyDepthMap(w, h)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		small.Set(x, y, dm.GetDepth(x*factor+factor/2, y*factor+factor/2))
	})
	return small, nil
}
