package colormap

import (
	"context"

	"github.com/samber/lo"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/utils"
)

// Visibility records which vertices each frame sees at the current camera parameters.
type Visibility struct {
	numVertices int
	// frame-major flags and depth consistency scores
	visible []bool
	score   []float64

	// FrameVertices lists the visible vertices of each frame in ascending order.
	FrameVertices [][]int
	// VertexFrames lists the frames seeing each vertex in ascending order.
	VertexFrames [][]int
}

// computeVisibility tests every vertex against every frame, in parallel over frames.
func computeVisibility(ctx context.Context, m *mesh.TriangleMesh, frames []*frameData, opts Options) (*Visibility, error) {
	n := m.NumVertices()
	vis := &Visibility{
		numVertices:   n,
		visible:       make([]bool, len(frames)*n),
		score:         make([]float64, len(frames)*n),
		FrameVertices: make([][]int, len(frames)),
		VertexFrames:  make([][]int, n),
	}
	err := utils.GroupWorkParallel(ctx, len(frames), 1, func(_, from, to int) error {
		for f := from; f < to; f++ {
			row := f * n
			var seen []int
			for i, v := range m.Vertices {
				s, ok := frames[f].visibilityScore(v, opts)
				if !ok {
					continue
				}
				vis.visible[row+i] = true
				vis.score[row+i] = s
				seen = append(seen, i)
			}
			vis.FrameVertices[f] = seen
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for f, seen := range vis.FrameVertices {
		for _, i := range seen {
			vis.VertexFrames[i] = append(vis.VertexFrames[i], f)
		}
	}
	return vis, nil
}

// Visible reports whether frame f sees vertex i.
func (vis *Visibility) Visible(f, i int) bool {
	return vis.visible[f*vis.numVertices+i]
}

// Score returns the depth consistency score of vertex i in frame f, in [0, 1).
func (vis *Visibility) Score(f, i int) float64 {
	return vis.score[f*vis.numVertices+i]
}

// NumObservations returns the number of visible (frame, vertex) pairs.
func (vis *Visibility) NumObservations() int {
	return lo.SumBy(vis.FrameVertices, func(seen []int) int { return len(seen) })
}

// NumUnseen returns how many vertices no frame sees.
func (vis *Visibility) NumUnseen() int {
	return lo.CountBy(vis.VertexFrames, func(frames []int) bool { return len(frames) == 0 })
}
