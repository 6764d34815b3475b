package colormap

import (
	"math"
)

// Anchor is one control point of a warping field, in pixels.
type Anchor struct {
	U, V float64
}

// WarpingField is a per-frame image space control grid. A pixel is moved to the bilinear blend of
// the four anchors of the grid cell it falls in. Anchors is a row-major window into an arena shared
// by every frame.
type WarpingField struct {
	Anchors    []Anchor
	Rows, Cols int
	Step       float64
}

// newWarpingFields allocates one arena holding the anchors of every frame and returns a field per
// frame, each initialized to the identity warp. Rows is the number of vertical anchors; the step
// is height/(rows-1) and enough columns are added to cover the width.
func newWarpingFields(width, height []int, rows int) []*WarpingField {
	fields := make([]*WarpingField, len(width))
	total := 0
	for i := range fields {
		step := float64(height[i]) / float64(rows-1)
		cols := int(math.Ceil(float64(width[i])/step)) + 1
		fields[i] = &WarpingField{Rows: rows, Cols: cols, Step: step}
		total += rows * cols
	}
	arena := make([]Anchor, total)
	offset := 0
	for _, f := range fields {
		n := f.Rows * f.Cols
		f.Anchors = arena[offset : offset+n : offset+n]
		offset += n
		f.Reset()
	}
	return fields
}

// Reset moves every anchor back to its rest position.
func (wf *WarpingField) Reset() {
	for k := range wf.Anchors {
		wf.Anchors[k] = wf.rest(k)
	}
}

// NumAnchors returns the number of anchors in the field.
func (wf *WarpingField) NumAnchors() int {
	return len(wf.Anchors)
}

// rest is the initial position of anchor k: its own grid location.
func (wf *WarpingField) rest(k int) Anchor {
	return Anchor{U: float64(k%wf.Cols) * wf.Step, V: float64(k/wf.Cols) * wf.Step}
}

// Displacement returns the squared distance of every anchor from its rest position, summed.
func (wf *WarpingField) Displacement() float64 {
	total := 0.0
	for k, a := range wf.Anchors {
		r := wf.rest(k)
		du, dv := a.U-r.U, a.V-r.V
		total += du*du + dv*dv
	}
	return total
}

// warpSample is a warped location with its derivatives with respect to the unwarped pixel and
// the anchors it depends on.
type warpSample struct {
	U, V float64
	// Jacobian of (U, V) with respect to the input pixel (u, v).
	DUdu, DUdv, DVdu, DVdv float64
	// Anchors blended, as indices into the field, and their bilinear weights.
	Index  [4]int
	Weight [4]float64
}

// Warp maps pixel (u, v) through the field. It fails for pixels outside the grid.
func (wf *WarpingField) Warp(u, v float64) (warpSample, bool) {
	gu, gv := u/wf.Step, v/wf.Step
	c0, r0 := math.Floor(gu), math.Floor(gv)
	if c0 < 0 || r0 < 0 || int(c0)+1 >= wf.Cols || int(r0)+1 >= wf.Rows {
		return warpSample{}, false
	}
	a, b := gu-c0, gv-r0
	k00 := int(r0)*wf.Cols + int(c0)
	ws := warpSample{
		Index:  [4]int{k00, k00 + 1, k00 + wf.Cols, k00 + wf.Cols + 1},
		Weight: [4]float64{(1 - a) * (1 - b), a * (1 - b), (1 - a) * b, a * b},
	}
	dwda := [4]float64{-(1 - b), 1 - b, -b, b}
	dwdb := [4]float64{-(1 - a), -a, 1 - a, a}
	for n, k := range ws.Index {
		anchor := wf.Anchors[k]
		ws.U += ws.Weight[n] * anchor.U
		ws.V += ws.Weight[n] * anchor.V
		ws.DUdu += dwda[n] * anchor.U
		ws.DUdv += dwdb[n] * anchor.U
		ws.DVdu += dwda[n] * anchor.V
		ws.DVdv += dwdb[n] * anchor.V
	}
	ws.DUdu /= wf.Step
	ws.DUdv /= wf.Step
	ws.DVdu /= wf.Step
	ws.DVdv /= wf.Step
	return ws, true
}
