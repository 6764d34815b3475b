// Package mesh defines the triangle mesh whose vertex colors the optimizer writes.
package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrInvalidMesh is returned by Validate.
var ErrInvalidMesh = errors.New("invalid mesh")

// TriangleMesh is an indexed triangle mesh with optional per-vertex normals and colors. Colors are
// RGB in [0, 1].
type TriangleMesh struct {
	Vertices  []r3.Vector
	Normals   []r3.Vector
	Colors    []colorful.Color
	Triangles [][3]int
}

// NumVertices returns the number of vertices.
func (m *TriangleMesh) NumVertices() int {
	return len(m.Vertices)
}

// HasColors reports whether every vertex has a color.
func (m *TriangleMesh) HasColors() bool {
	return len(m.Vertices) > 0 && len(m.Colors) == len(m.Vertices)
}

// Validate checks that normals and colors are empty or per-vertex and that every triangle index
// refers to a vertex. All problems are reported together.
func (m *TriangleMesh) Validate() error {
	if m == nil {
		return errors.Wrap(ErrInvalidMesh, "mesh is nil")
	}
	var err error
	n := len(m.Vertices)
	if len(m.Normals) != 0 && len(m.Normals) != n {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidMesh, "%d normals for %d vertices", len(m.Normals), n))
	}
	if len(m.Colors) != 0 && len(m.Colors) != n {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidMesh, "%d colors for %d vertices", len(m.Colors), n))
	}
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				err = multierr.Append(err, errors.Wrapf(ErrInvalidMesh, "triangle %d refers to vertex %d of %d", i, idx, n))
				break
			}
		}
	}
	return err
}

// EnsureColors allocates black colors for a mesh that has none.
func (m *TriangleMesh) EnsureColors() {
	if len(m.Colors) == 0 {
		m.Colors = make([]colorful.Color, len(m.Vertices))
	}
}

// Clone returns a deep copy.
func (m *TriangleMesh) Clone() *TriangleMesh {
	return &TriangleMesh{
		Vertices:  append([]r3.Vector(nil), m.Vertices...),
		Normals:   append([]r3.Vector(nil), m.Normals...),
		Colors:    append([]colorful.Color(nil), m.Colors...),
		Triangles: append([][3]int(nil), m.Triangles...),
	}
}

// MeanColor returns the per-channel mean of the vertex colors.
func (m *TriangleMesh) MeanColor() (colorful.Color, error) {
	if len(m.Colors) == 0 {
		return colorful.Color{}, errors.New("mesh has no colors")
	}
	rs := make(stats.Float64Data, len(m.Colors))
	gs := make(stats.Float64Data, len(m.Colors))
	bs := make(stats.Float64Data, len(m.Colors))
	for i, c := range m.Colors {
		rs[i], gs[i], bs[i] = c.R, c.G, c.B
	}
	r, err := rs.Mean()
	if err != nil {
		return colorful.Color{}, err
	}
	g, err := gs.Mean()
	if err != nil {
		return colorful.Color{}, err
	}
	b, err := bs.Mean()
	if err != nil {
		return colorful.Color{}, err
	}
	return colorful.Color{R: r, G: g, B: b}, nil
}

// ComputeVertexNormals sets every normal to the normalized area-weighted sum of the normals of the
// triangles using the vertex. Vertices with no triangles get a zero normal.
func (m *TriangleMesh) ComputeVertexNormals() {
	normals := make([]r3.Vector, len(m.Vertices))
	for _, tri := range m.Triangles {
		a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range tri {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if norm := n.Norm(); norm > 0 {
			normals[i] = n.Mul(1 / norm)
		}
	}
	m.Normals = normals
}
