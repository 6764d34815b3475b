package colormap

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"
	"github.com/seqsense/pcgol/pc/storage/kdtree"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/utils"
)

// depthConsistencyEpsilon keeps depth consistency weights finite for a perfect depth match.
const depthConsistencyEpsilon = 0.1

// aggregateResult reports how the vertex colors were produced.
type aggregateResult struct {
	colored  int
	filled   int
	fallback int
}

// aggregateColors sets every vertex color to the weighted mean of its color samples over the
// frames that see it. Vertices without a sample keep their color or, when enabled, copy the color
// of the nearest sampled vertex within the fill radius.
func aggregateColors(
	ctx context.Context,
	m *mesh.TriangleMesh,
	frames []*frameData,
	vis *Visibility,
	opts Options,
) (aggregateResult, error) {
	n := m.NumVertices()
	colors := make([]colorful.Color, n)
	sampled := make([]bool, n)
	err := utils.GroupWorkParallel(ctx, n, vertexChunkSize, func(_, from, to int) error {
		for i := from; i < to; i++ {
			var sum colorful.Color
			total := 0.0
			for _, f := range vis.VertexFrames[i] {
				fd := frames[f]
				obs, ok := fd.observe(m.Vertices[i], fd.camera.Extrinsics, opts.ImageBoundaryMargin)
				if !ok {
					continue
				}
				c, err := fd.color.Sample(obs.u, obs.v)
				if err != nil {
					continue
				}
				w := 1.0
				if opts.ColorWeighting == WeightingDepthConsistency {
					w = 1 / (depthConsistencyEpsilon + vis.Score(f, i))
				}
				sum.R += w * c.R
				sum.G += w * c.G
				sum.B += w * c.B
				total += w
			}
			if total > 0 {
				colors[i] = colorful.Color{R: sum.R / total, G: sum.G / total, B: sum.B / total}
				sampled[i] = true
			}
		}
		return nil
	})
	if err != nil {
		return aggregateResult{}, err
	}

	var res aggregateResult
	var donors []int
	for i, ok := range sampled {
		if ok {
			m.Colors[i] = colors[i]
			donors = append(donors, i)
			res.colored++
		}
	}
	if res.colored == n {
		return res, nil
	}
	if !opts.InvisibleVertexColorFill || len(donors) == 0 {
		res.fallback = n - res.colored
		return res, nil
	}

	points := make(pc.Vec3Slice, len(donors))
	for k, i := range donors {
		points[k] = toVec3(m.Vertices[i])
	}
	kdt := kdtree.New(points)
	radius := float32(opts.InvisibleVertexFillRadius)
	for i, ok := range sampled {
		if ok {
			continue
		}
		nb := kdt.Nearest(toVec3(m.Vertices[i]), radius)
		if nb.ID < 0 {
			res.fallback++
			continue
		}
		m.Colors[i] = colors[donors[nb.ID]]
		res.filled++
	}
	return res, nil
}

func toVec3(v r3.Vector) mat.Vec3 {
	return mat.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}
