package rimage

import "image"

// Mask is a binary per-pixel mask.
type Mask struct {
	width, height int
	data          []bool
}

// NewMask returns an all-false width x height mask.
func NewMask(width, height int) *Mask {
	return &Mask{width: width, height: height, data: make([]bool, width*height)}
}

// Width returns the horizontal size of the mask.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the vertical size of the mask.
func (m *Mask) Height() int {
	return m.height
}

// At reports whether (x, y) is set. Pixels outside the mask are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.data[y*m.width+x]
}

// Set sets (x, y) to v.
func (m *Mask) Set(x, y int, v bool) {
	m.data[y*m.width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// Dilate returns a new mask where every pixel within halfSize (Chebyshev distance) of a set
// pixel is set. A halfSize of zero returns a copy.
func (m *Mask) Dilate(halfSize int) *Mask {
	out := NewMask(m.width, m.height)
	if halfSize <= 0 {
		copy(out.data, m.data)
		return out
	}
	// separable: rows then columns
	tmp := NewMask(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !m.data[y*m.width+x] {
				continue
			}
			for dx := max(0, x-halfSize); dx <= min(m.width-1, x+halfSize); dx++ {
				tmp.data[y*m.width+dx] = true
			}
		}
	}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !tmp.data[y*m.width+x] {
				continue
			}
			for dy := max(0, y-halfSize); dy <= min(m.height-1, y+halfSize); dy++ {
				out.data[dy*m.width+x] = true
			}
		}
	}
	return out
}

// DepthBoundaryMask marks pixels where the depth changes by more than threshold meters per
// pixel (Sobel response on the map in meters), then dilates the marks by halfDilation pixels.
// Edges between valid readings and holes are marked too.
func DepthBoundaryMask(dm *DepthMap, threshold float64, halfDilation int) (*Mask, error) {
	meters := dm.MetersImage()
	dx, err := ConvolveFloat(meters, GetSobelX())
	if err != nil {
		return nil, err
	}
	dy, err := ConvolveFloat(meters, GetSobelY())
	if err != nil {
		return nil, err
	}
	mask := NewMask(dm.width, dm.height)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			gx, gy := dx.At(x, y), dy.At(x, y)
			if gx > threshold || gx < -threshold || gy > threshold || gy < -threshold {
				mask.Set(x, y, true)
			}
		}
	}
	return mask.Dilate(halfDilation), nil
}

// Bounds returns the rectangle covering the mask.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}
