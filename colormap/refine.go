package colormap

import (
	"context"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/spatialmath"
	"go.viam.com/colormap/utils"
)

// frameStep is the outcome of one refinement step of one frame.
type frameStep struct {
	samples    int
	sumSquares float64
	// objective before and after the step
	before   float64
	after    float64
	halvings int
	accepted bool
	// set to an ErrSingularSystem when the update was skipped
	err error
}

// refineFrames runs one refinement step on every frame in parallel. Each frame only updates its
// own camera and warping field.
func refineFrames(
	ctx context.Context,
	m *mesh.TriangleMesh,
	frames []*frameData,
	vis *Visibility,
	proxy *proxyIntensity,
	opts Options,
) ([]frameStep, error) {
	steps := make([]frameStep, len(frames))
	err := utils.GroupWorkParallel(ctx, len(frames), 1, func(_, from, to int) error {
		for f := from; f < to; f++ {
			if opts.Mode() == ModeNonRigid {
				steps[f] = refineNonRigidFrame(frames[f], m, vis.FrameVertices[f], proxy, opts)
			} else {
				steps[f] = refineRigidFrame(frames[f], m, vis.FrameVertices[f], proxy, opts)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// anchorRegularization is the weight pulling anchors back to rest, scaled by how much of the mesh
// the frame sees.
func anchorRegularization(seen []int, m *mesh.TriangleMesh, opts Options) float64 {
	if m.NumVertices() == 0 {
		return 0
	}
	return opts.NonRigidAnchorPointWeight * float64(len(seen)) / float64(m.NumVertices())
}

// photometricResidual sums the squared residuals of the vertices a frame sees against the proxy
// intensity, sampling at the frame's current pose and warping field.
func photometricResidual(fd *frameData, m *mesh.TriangleMesh, seen []int, proxy *proxyIntensity, margin int) (float64, int) {
	sum, count := 0.0, 0
	for _, i := range seen {
		if !proxy.valid[i] {
			continue
		}
		obs, ok := fd.observe(m.Vertices[i], fd.camera.Extrinsics, margin)
		if !ok {
			continue
		}
		gray, _, _, err := fd.gradient.Sample(obs.u, obs.v)
		if err != nil {
			continue
		}
		r := gray - proxy.value[i]
		sum += utils.Square(r)
		count++
	}
	return sum, count
}

// frameObjective is the mean squared photometric residual of a frame plus its warp regularizer,
// returned together with the photometric part alone. A frame with no samples has an infinite
// objective.
func frameObjective(fd *frameData, m *mesh.TriangleMesh, seen []int, proxy *proxyIntensity, opts Options) (float64, float64) {
	sum, count := photometricResidual(fd, m, seen, proxy, opts.ImageBoundaryMargin)
	if count == 0 {
		return math.Inf(1), math.Inf(1)
	}
	photometric := sum / float64(count)
	if fd.field != nil {
		sum += anchorRegularization(seen, m, opts) * fd.field.Displacement()
	}
	return sum / float64(count), photometric
}

// applyStep moves the frame's pose by the twist in delta[0:6] and its anchors by delta[6:],
// both scaled. The pose update is left-multiplied onto the world to camera transform.
func applyStep(fd *frameData, pose spatialmath.Pose, anchors []Anchor, delta []float64, scale float64) {
	twist := spatialmath.NewPoseFromTwist(
		r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}.Mul(scale),
		r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]}.Mul(scale),
	)
	fd.camera.Extrinsics = spatialmath.Compose(twist, pose)
	if fd.field == nil {
		return
	}
	for k, a := range anchors {
		fd.field.Anchors[k] = Anchor{
			U: a.U + scale*delta[6+2*k],
			V: a.V + scale*delta[7+2*k],
		}
	}
}

// acceptStep applies delta, halving it up to MaxStepHalvings times until neither the frame
// objective nor its photometric part increases. If no scale works the frame is restored.
func acceptStep(
	fd *frameData,
	m *mesh.TriangleMesh,
	seen []int,
	proxy *proxyIntensity,
	delta []float64,
	opts Options,
	step frameStep,
) frameStep {
	pose := fd.camera.Extrinsics
	var anchors []Anchor
	if fd.field != nil {
		anchors = append([]Anchor(nil), fd.field.Anchors...)
	}
	photometricBefore := step.sumSquares / float64(step.samples)
	scale := 1.0
	for h := 0; h <= opts.MaxStepHalvings; h++ {
		applyStep(fd, pose, anchors, delta, scale)
		after, photometric := frameObjective(fd, m, seen, proxy, opts)
		if after <= step.before && photometric <= photometricBefore {
			step.after, step.halvings, step.accepted = after, h, true
			return step
		}
		scale /= 2
	}
	fd.camera.Extrinsics = pose
	if fd.field != nil {
		copy(fd.field.Anchors, anchors)
	}
	step.after, step.halvings = step.before, opts.MaxStepHalvings
	return step
}
