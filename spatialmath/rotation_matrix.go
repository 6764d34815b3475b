package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 rotation stored row-major.
type RotationMatrix [9]float64

// At returns the element at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm[row*3+col]
}

// Row returns the row as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm[row*3], Y: rm[row*3+1], Z: rm[row*3+2]}
}

// Mul returns rm * v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm[0]*v.X + rm[1]*v.Y + rm[2]*v.Z,
		Y: rm[3]*v.X + rm[4]*v.Y + rm[5]*v.Z,
		Z: rm[6]*v.X + rm[7]*v.Y + rm[8]*v.Z,
	}
}

// Transpose returns the transpose, which for a rotation is its inverse.
func (rm *RotationMatrix) Transpose() RotationMatrix {
	return RotationMatrix{
		rm[0], rm[3], rm[6],
		rm[1], rm[4], rm[7],
		rm[2], rm[5], rm[8],
	}
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return RotationMatrix{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// Quaternion converts the rotation matrix to a unit quaternion with non-negative real part.
func (rm *RotationMatrix) Quaternion() quat.Number {
	var q quat.Number
	trace := rm[0] + rm[4] + rm[8]
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{Real: 0.25 / s, Imag: (rm[7] - rm[5]) * s, Jmag: (rm[2] - rm[6]) * s, Kmag: (rm[3] - rm[1]) * s}
	case rm[0] > rm[4] && rm[0] > rm[8]:
		s := 2 * math.Sqrt(1+rm[0]-rm[4]-rm[8])
		q = quat.Number{Real: (rm[7] - rm[5]) / s, Imag: 0.25 * s, Jmag: (rm[1] + rm[3]) / s, Kmag: (rm[2] + rm[6]) / s}
	case rm[4] > rm[8]:
		s := 2 * math.Sqrt(1+rm[4]-rm[0]-rm[8])
		q = quat.Number{Real: (rm[2] - rm[6]) / s, Imag: (rm[1] + rm[3]) / s, Jmag: 0.25 * s, Kmag: (rm[5] + rm[7]) / s}
	default:
		s := 2 * math.Sqrt(1+rm[8]-rm[0]-rm[4])
		q = quat.Number{Real: (rm[3] - rm[1]) / s, Imag: (rm[2] + rm[6]) / s, Jmag: (rm[5] + rm[7]) / s, Kmag: 0.25 * s}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return Normalize(q)
}

// CheckRotation returns an error if rm is not orthonormal with determinant +1 within tolerance.
func (rm *RotationMatrix) CheckRotation(tolerance float64) error {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := rm.Row(i).Dot(rm.Row(j))
			expected := 0.
			if i == j {
				expected = 1
			}
			if math.Abs(dot-expected) > tolerance {
				return errors.Errorf("rotation rows %d and %d are not orthonormal (dot %.6f)", i, j, dot)
			}
		}
	}
	if det := rm.Row(0).Dot(rm.Row(1).Cross(rm.Row(2))); math.Abs(det-1) > tolerance {
		return errors.Errorf("rotation determinant is %.6f, not 1", det)
	}
	return nil
}

// Normalize scales q to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// RotationVectorToQuat converts a rotation vector (axis times angle in radians) to a unit
// quaternion using the exponential map.
func RotationVectorToQuat(omega r3.Vector) quat.Number {
	return Normalize(quat.Exp(quat.Number{Imag: omega.X / 2, Jmag: omega.Y / 2, Kmag: omega.Z / 2}))
}
