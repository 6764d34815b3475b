package testutils

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/colormap/rimage"
	"go.viam.com/colormap/spatialmath"
)

func TestSphereScene(t *testing.T) {
	cfg := DefaultSceneConfig()
	scene := NewSphereScene(cfg)
	test.That(t, scene.Mesh.Validate(), test.ShouldBeNil)
	test.That(t, scene.Mesh.NumVertices(), test.ShouldEqual, 2+(cfg.Rings-1)*cfg.Segments)
	test.That(t, len(scene.Colors), test.ShouldEqual, cfg.NumFrames)
	test.That(t, len(scene.Depths), test.ShouldEqual, cfg.NumFrames)
	test.That(t, len(scene.Cameras), test.ShouldEqual, cfg.NumFrames)

	for k, cam := range scene.Cameras {
		test.That(t, cam.Intrinsics.CheckValid(), test.ShouldBeNil)
		// the perturbation is small but present
		test.That(t, spatialmath.PoseAlmostEqual(cam.Extrinsics, scene.TruePoses[k], 0.05), test.ShouldBeTrue)
		test.That(t, spatialmath.PoseAlmostEqual(cam.Extrinsics, scene.TruePoses[k], 1e-4), test.ShouldBeFalse)

		// the sphere center is on the optical axis of the true camera
		center := scene.TruePoses[k].Transform(scene.Center)
		test.That(t, center.X, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, center.Y, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, center.Z, test.ShouldAlmostEqual, cfg.Distance, 1e-9)

		// the image center sees the front of the sphere at distance - radius
		dm := scene.Depths[k]
		test.That(t, dm.MetersAt(cfg.Width/2, cfg.Height/2), test.ShouldAlmostEqual, cfg.Distance-scene.Radius, 1e-3)
		test.That(t, dm.GetDepth(0, 0), test.ShouldEqual, rimage.Depth(0))
	}
}

func TestSphereSceneMatchesTexture(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.NumFrames = 1
	scene := NewSphereScene(cfg)
	truth := scene.TrueColors()
	pose := scene.TruePoses[0]
	intr := scene.Cameras[0].Intrinsics

	checked := 0
	for i, v := range scene.Mesh.Vertices {
		p := pose.Transform(v)
		u, vv := intr.PointToPixel(p.X, p.Y, p.Z)
		x, y := int(math.Round(u)), int(math.Round(vv))
		if !intr.InBounds(u, vv, 2) || scene.Depths[0].GetDepth(x, y) == 0 {
			continue
		}
		// front facing vertices only
		if math.Abs(scene.Depths[0].MetersAt(x, y)-p.Z) > 0.01 {
			continue
		}
		c := scene.Colors[0].GetXY(x, y)
		test.That(t, c.R, test.ShouldAlmostEqual, truth[i].R, 0.05)
		test.That(t, c.G, test.ShouldAlmostEqual, truth[i].G, 0.05)
		test.That(t, c.B, test.ShouldAlmostEqual, truth[i].B, 0.05)
		checked++
	}
	test.That(t, checked, test.ShouldBeGreaterThan, 100)
}
