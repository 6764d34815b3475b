package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestConvertImageToDepthMap(t *testing.T) {
	g16 := image.NewGray16(image.Rect(0, 0, 4, 3))
	g16.SetGray16(2, 1, color.Gray16{1500})

	dm, err := ConvertImageToDepthMap(g16)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.GetDepth(2, 1), test.ShouldEqual, Depth(1500))
	test.That(t, dm.MetersAt(2, 1), test.ShouldAlmostEqual, 1.5)
	test.That(t, dm.MetersAt(0, 0), test.ShouldEqual, 0.)

	same, err := ConvertImageToDepthMap(dm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, dm)

	back := dm.ToGray16()
	test.That(t, back.Gray16At(2, 1).Y, test.ShouldEqual, uint16(1500))

	_, err = ConvertImageToDepthMap(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = ConvertImageToDepthMap(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthFromMeters(t *testing.T) {
	test.That(t, DepthFromMeters(1.2346), test.ShouldEqual, Depth(1235))
	test.That(t, DepthFromMeters(-1), test.ShouldEqual, Depth(0))
	test.That(t, DepthFromMeters(100), test.ShouldEqual, MaxDepth)
}
