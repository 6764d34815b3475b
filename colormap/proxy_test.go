package colormap

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/colormap/rimage"
)

func TestComputeProxyIntensity(t *testing.T) {
	scene := newTestScene(t, 0)
	m, frames := sceneInputs(t, scene)
	opts := testOptions(0, false)
	fds, err := preprocessFrames(testContext(t), frames, opts)
	test.That(t, err, test.ShouldBeNil)
	vis, err := computeVisibility(testContext(t), m, fds, opts)
	test.That(t, err, test.ShouldBeNil)
	proxy, err := computeProxyIntensity(testContext(t), m, fds, vis, opts)
	test.That(t, err, test.ShouldBeNil)

	truth := scene.TrueColors()
	valid := 0
	for i := range m.Vertices {
		if len(vis.VertexFrames[i]) == 0 {
			test.That(t, proxy.valid[i], test.ShouldBeFalse)
			test.That(t, proxy.value[i], test.ShouldEqual, 0.)
			continue
		}
		if !proxy.valid[i] {
			continue
		}
		valid++
		// smoothing blurs the texture slightly
		test.That(t, proxy.value[i], test.ShouldAlmostEqual, rimage.Luma(truth[i]), 0.03)
	}
	test.That(t, valid, test.ShouldBeGreaterThan, 100)
}
