package colormap

import (
	"go.viam.com/colormap/mesh"
)

// refineNonRigidFrame takes one Gauss-Newton step on the pose and the warping field of a frame.
// The unknowns are the pose twist followed by the (U, V) of every anchor.
func refineNonRigidFrame(fd *frameData, m *mesh.TriangleMesh, seen []int, proxy *proxyIntensity, opts Options) frameStep {
	field := fd.field
	ne := newNormalEquations(6 + 2*field.NumAnchors())
	cols := make([]int, 14)
	jac := make([]float64, 14)
	copy(cols, rigidColumns)
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
		ws := obs.warp
		// chain the image gradient through the warp
		dIdu := dIdx*ws.DUdu + dIdy*ws.DVdu
		dIdv := dIdx*ws.DUdv + dIdy*ws.DVdv
		poseJacobian(jac, obs.p, fd.camera.Intrinsics, dIdu, dIdv)
		for n, k := range ws.Index {
			cols[6+2*n], cols[7+2*n] = 6+2*k, 7+2*k
			jac[6+2*n], jac[7+2*n] = dIdx*ws.Weight[n], dIdy*ws.Weight[n]
		}
		ne.addSparse(cols, jac, gray-proxy.value[i])
	}

	step := frameStep{samples: ne.count, sumSquares: ne.sumSquares}
	if ne.count == 0 {
		step.err = ErrSingularSystem
		return step
	}
	weight := anchorRegularization(seen, m, opts)
	for k, a := range field.Anchors {
		rest := field.rest(k)
		ne.addDiagonal(6+2*k, weight, a.U-rest.U)
		ne.addDiagonal(7+2*k, weight, a.V-rest.V)
	}
	step.before = (ne.sumSquares + weight*field.Displacement()) / float64(ne.count)
	delta, err := ne.solve(opts.MaxConditionNumber)
	if err != nil {
		step.err = err
		step.after = step.before
		return step
	}
	return acceptStep(fd, m, seen, proxy, delta, opts, step)
}
