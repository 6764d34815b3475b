package colormap

import (
	"github.com/golang/geo/r3"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/rimage/transform"
)

var rigidColumns = []int{0, 1, 2, 3, 4, 5}

// poseJacobian fills jac[0:6] with the derivative of the intensity at the projection of camera
// space point p with respect to a twist [ω, t] applied to the camera pose, given the image
// gradient (dIdu, dIdv) at the projection.
func poseJacobian(jac []float64, p r3.Vector, in *transform.PinholeCameraIntrinsics, dIdu, dIdv float64) {
	invZ := 1 / p.Z
	g := r3.Vector{
		X: dIdu * in.Fx * invZ,
		Y: dIdv * in.Fy * invZ,
		Z: -(dIdu*in.Fx*p.X + dIdv*in.Fy*p.Y) * invZ * invZ,
	}
	c := p.Cross(g)
	jac[0], jac[1], jac[2] = c.X, c.Y, c.Z
	jac[3], jac[4], jac[5] = g.X, g.Y, g.Z
}

// refineRigidFrame takes one Gauss-Newton step on the 6-DOF pose of a frame.
func refineRigidFrame(fd *frameData, m *mesh.TriangleMesh, seen []int, proxy *proxyIntensity, opts Options) frameStep {
	ne := newNormalEquations(6)
	jac := make([]float64, 6)
	for _, i := range seen {
		if !proxy.valid[i] {
			continue
		}
		obs, ok := fd.observe(m.Vertices[i], fd.camera.Extrinsics, opts.ImageBoundaryMargin)
		if !ok {
			continue
		}
		gray, dIdx, dIdy, err := fd.gradient.Sample(obs.u, obs.v)
		if err != nil {
			continue
		}
		poseJacobian(jac, obs.p, fd.camera.Intrinsics, dIdx, dIdy)
		ne.addSparse(rigidColumns, jac, gray-proxy.value[i])
	}

	step := frameStep{samples: ne.count, sumSquares: ne.sumSquares}
	if ne.count > 0 {
		step.before = ne.sumSquares / float64(ne.count)
	}
	delta, err := ne.solve(opts.MaxConditionNumber)
	if err != nil {
		step.err = err
		step.after = step.before
		return step
	}
	return acceptStep(fd, m, seen, proxy, delta, opts, step)
}
