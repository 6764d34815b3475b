package colormap

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/colormap/rimage"
)

func TestComputeVisibility(t *testing.T) {
	scene := newTestScene(t, 0)
	m, frames := sceneInputs(t, scene)
	opts := testOptions(0, false)
	fds, err := preprocessFrames(testContext(t), frames, opts)
	test.That(t, err, test.ShouldBeNil)
	vis, err := computeVisibility(testContext(t), m, fds, opts)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, len(vis.FrameVertices), test.ShouldEqual, len(frames))
	test.That(t, len(vis.VertexFrames), test.ShouldEqual, m.NumVertices())
	test.That(t, vis.NumObservations(), test.ShouldBeGreaterThan, 0)
	// the back of the sphere is never seen
	test.That(t, vis.NumUnseen(), test.ShouldBeGreaterThan, m.NumVertices()/3)

	for f, seen := range vis.FrameVertices {
		test.That(t, len(seen), test.ShouldBeGreaterThan, 100)
		for _, i := range seen {
			test.That(t, vis.Visible(f, i), test.ShouldBeTrue)
			test.That(t, vis.Score(f, i), test.ShouldBeBetweenOrEqual, 0, 1)
			// visible vertices face the camera
			p := fds[f].camera.Extrinsics.Transform(m.Vertices[i])
			n := fds[f].camera.Extrinsics.Rotation()
			normal := n.Mul(m.Normals[i])
			test.That(t, normal.Dot(p), test.ShouldBeLessThan, 0)
		}
	}
	total := 0
	for i, fs := range vis.VertexFrames {
		for _, f := range fs {
			test.That(t, vis.Visible(f, i), test.ShouldBeTrue)
		}
		total += len(fs)
	}
	test.That(t, total, test.ShouldEqual, vis.NumObservations())
}

func TestVisibilityScore(t *testing.T) {
	scene := newTestScene(t, 0)
	m, frames := sceneInputs(t, scene)
	opts := testOptions(0, false)
	opts.HalfDilationKernelSizeForDiscontinuityMap = 0
	fd, err := preprocessFrame(0, frames[0], opts)
	test.That(t, err, test.ShouldBeNil)

	// vertex closest to the optical axis on the front of the sphere
	best, bestDist := -1, math.Inf(1)
	for i, v := range m.Vertices {
		p := fd.camera.Extrinsics.Transform(v)
		if d := math.Hypot(p.X, p.Y); p.Z < 2 && d < bestDist {
			best, bestDist = i, d
		}
	}
	v := m.Vertices[best]
	score, ok := fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, score, test.ShouldBeLessThan, 0.5)

	px, z, err := fd.camera.Project(v)
	test.That(t, err, test.ShouldBeNil)
	x, y := int(math.Round(px.X)), int(math.Round(px.Y))

	// an occluder in front of the vertex
	fd.depth.Set(x, y, rimage.DepthFromMeters(z-0.2))
	_, ok = fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeFalse)

	// beyond the maximum allowable depth
	fd.depth.Set(x, y, rimage.DepthFromMeters(z))
	_, ok = fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeTrue)
	opts.MaximumAllowableDepth = z - 0.01
	_, ok = fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeFalse)
	opts.MaximumAllowableDepth = 2.5

	// no depth reading
	fd.depth.Set(x, y, 0)
	_, ok = fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeFalse)

	// on a depth discontinuity
	fd.depth.Set(x, y, rimage.DepthFromMeters(z))
	fd.mask.Set(x, y, true)
	_, ok = fd.visibilityScore(v, opts)
	test.That(t, ok, test.ShouldBeFalse)
}
