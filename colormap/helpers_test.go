package colormap

import (
	"context"
	"image"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/rimage/transform"
	"go.viam.com/colormap/testutils"
)

// unsetColor marks vertices the optimizer did not write.
var unsetColor = colorful.Color{R: -1, G: -1, B: -1}

func newTestScene(t *testing.T, perturbation float64) *testutils.Scene {
	t.Helper()
	cfg := testutils.DefaultSceneConfig()
	cfg.Perturbation = perturbation
	scene := testutils.NewSphereScene(cfg)
	for i := range scene.Mesh.Colors {
		scene.Mesh.Colors[i] = unsetColor
	}
	return scene
}

// sceneInputs returns a fresh copy of the scene's mesh and frames so runs do not share state.
func sceneInputs(t *testing.T, scene *testutils.Scene) (*mesh.TriangleMesh, []Frame) {
	t.Helper()
	colors := make([]image.Image, len(scene.Colors))
	for i, c := range scene.Colors {
		colors[i] = c
	}
	traj := &transform.PinholeCameraTrajectory{Parameters: scene.Cameras}
	frames, err := NewFrames(colors, scene.Depths, traj.Clone())
	if err != nil {
		t.Fatal(err)
	}
	return scene.Mesh.Clone(), frames
}

func testOptions(iterations int, nonRigid bool) Options {
	opts := DefaultOptions()
	opts.MaximumIteration = iterations
	opts.NonRigidCameraCoordinate = nonRigid
	opts.NumberOfVerticalAnchors = 6
	return opts
}

// colorError is the mean absolute channel error of the written vertex colors against the truth.
func colorError(m *mesh.TriangleMesh, truth []colorful.Color) (float64, int) {
	sum, n := 0.0, 0
	for i, c := range m.Colors {
		if c == unsetColor {
			continue
		}
		d := abs(c.R-truth[i].R) + abs(c.G-truth[i].G) + abs(c.B-truth[i].B)
		sum += d / 3
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// frontFacingVertices counts the vertices whose normal faces at least one true camera and that
// project at least margin pixels inside that camera's image. No visibility test can see more.
func frontFacingVertices(scene *testutils.Scene, margin int) int {
	count := 0
	for i, v := range scene.Mesh.Vertices {
		for f, pose := range scene.TruePoses {
			eye := pose.Invert().Point()
			if scene.Mesh.Normals[i].Dot(eye.Sub(v)) <= 0 {
				continue
			}
			cam := &transform.PinholeCameraParameters{Intrinsics: scene.Cameras[f].Intrinsics, Extrinsics: pose}
			px, _, err := cam.Project(v)
			if err != nil || !cam.Intrinsics.InBounds(px.X, px.Y, margin) {
				continue
			}
			count++
			break
		}
	}
	return count
}

// coloredMeans returns the mean written color and the mean true color over the written vertices.
func coloredMeans(m *mesh.TriangleMesh, truth []colorful.Color) (colorful.Color, colorful.Color) {
	var got, want colorful.Color
	n := 0.0
	for i, c := range m.Colors {
		if c == unsetColor {
			continue
		}
		got.R, got.G, got.B = got.R+c.R, got.G+c.G, got.B+c.B
		want.R, want.G, want.B = want.R+truth[i].R, want.G+truth[i].G, want.B+truth[i].B
		n++
	}
	if n == 0 {
		return got, want
	}
	return colorful.Color{R: got.R / n, G: got.G / n, B: got.B / n},
		colorful.Color{R: want.R / n, G: want.G / n, B: want.B / n}
}

// testContext returns a context that is canceled when the test finishes, like testing.T.Context.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
