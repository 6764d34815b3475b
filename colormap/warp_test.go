package colormap

import (
	"testing"

	"go.viam.com/test"
)

func TestNewWarpingFields(t *testing.T) {
	fields := newWarpingFields([]int{160, 80}, []int{120, 60}, 6)
	test.That(t, len(fields), test.ShouldEqual, 2)
	test.That(t, fields[0].Step, test.ShouldEqual, 24.)
	test.That(t, fields[0].Rows, test.ShouldEqual, 6)
	test.That(t, fields[0].Cols, test.ShouldEqual, 8)
	test.That(t, fields[0].NumAnchors(), test.ShouldEqual, 48)
	test.That(t, fields[1].Step, test.ShouldEqual, 12.)
	test.That(t, fields[1].Cols, test.ShouldEqual, 8)

	// fields are disjoint windows of one arena
	test.That(t, cap(fields[0].Anchors), test.ShouldEqual, 48)
	fields[1].Anchors[0].U = 100
	test.That(t, fields[0].Anchors[47], test.ShouldResemble, Anchor{U: 7 * 24, V: 5 * 24})
	test.That(t, fields[1].Displacement(), test.ShouldEqual, 100.*100.)
	fields[1].Reset()
	test.That(t, fields[1].Displacement(), test.ShouldEqual, 0.)
}

func TestWarpIdentity(t *testing.T) {
	field := newWarpingFields([]int{160}, []int{120}, 6)[0]
	for _, uv := range [][2]float64{{0, 0}, {10.5, 3.25}, {159, 119}, {80, 60}} {
		ws, ok := field.Warp(uv[0], uv[1])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, ws.U, test.ShouldAlmostEqual, uv[0])
		test.That(t, ws.V, test.ShouldAlmostEqual, uv[1])
		test.That(t, ws.DUdu, test.ShouldAlmostEqual, 1)
		test.That(t, ws.DVdv, test.ShouldAlmostEqual, 1)
		test.That(t, ws.DUdv, test.ShouldAlmostEqual, 0)
		test.That(t, ws.DVdu, test.ShouldAlmostEqual, 0)
		sum := 0.0
		for _, w := range ws.Weight {
			sum += w
		}
		test.That(t, sum, test.ShouldAlmostEqual, 1)
	}

	_, ok := field.Warp(-0.5, 10)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = field.Warp(10, 120)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestWarpDerivatives(t *testing.T) {
	field := newWarpingFields([]int{160}, []int{120}, 6)[0]
	for k := range field.Anchors {
		field.Anchors[k].U += 0.7 * float64(k%5)
		field.Anchors[k].V -= 0.3 * float64(k%3)
	}
	const eps = 1e-6
	u, v := 37.3, 51.9
	ws, ok := field.Warp(u, v)
	test.That(t, ok, test.ShouldBeTrue)
	wu, _ := field.Warp(u+eps, v)
	wv, _ := field.Warp(u, v+eps)
	test.That(t, ws.DUdu, test.ShouldAlmostEqual, (wu.U-ws.U)/eps, 1e-4)
	test.That(t, ws.DVdu, test.ShouldAlmostEqual, (wu.V-ws.V)/eps, 1e-4)
	test.That(t, ws.DUdv, test.ShouldAlmostEqual, (wv.U-ws.U)/eps, 1e-4)
	test.That(t, ws.DVdv, test.ShouldAlmostEqual, (wv.V-ws.V)/eps, 1e-4)

	// moving one blended anchor moves the sample by its weight
	k := ws.Index[3]
	field.Anchors[k].U++
	moved, _ := field.Warp(u, v)
	test.That(t, moved.U-ws.U, test.ShouldAlmostEqual, ws.Weight[3])
	test.That(t, moved.V, test.ShouldAlmostEqual, ws.V)
}
