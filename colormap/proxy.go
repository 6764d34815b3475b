package colormap

import (
	"context"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/utils"
)

// vertexChunkSize is the number of vertices handled per parallel work item. It is fixed so results
// do not depend on the number of processors.
const vertexChunkSize = 512

// proxyIntensity is the current estimate of each vertex's gray intensity: the mean of its samples
// over the frames that see it. Vertices without a valid sample have intensity 0 and are not valid.
type proxyIntensity struct {
	value []float64
	valid []bool
}

func computeProxyIntensity(
	ctx context.Context,
	m *mesh.TriangleMesh,
	frames []*frameData,
	vis *Visibility,
	opts Options,
) (*proxyIntensity, error) {
	n := m.NumVertices()
	proxy := &proxyIntensity{value: make([]float64, n), valid: make([]bool, n)}
	err := utils.GroupWorkParallel(ctx, n, vertexChunkSize, func(_, from, to int) error {
		for i := from; i < to; i++ {
			sum, count := 0.0, 0
			for _, f := range vis.VertexFrames[i] {
				fd := frames[f]
				obs, ok := fd.observe(m.Vertices[i], fd.camera.Extrinsics, opts.ImageBoundaryMargin)
				if !ok {
					continue
				}
				gray, _, _, err := fd.gradient.Sample(obs.u, obs.v)
				if err != nil {
					continue
				}
				sum += gray
				count++
			}
			if count > 0 {
				proxy.value[i] = sum / float64(count)
				proxy.valid[i] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proxy, nil
}
