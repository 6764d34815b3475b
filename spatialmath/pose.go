// Package spatialmath defines the rigid transforms used to place cameras relative to a mesh.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/colormap/utils"
)

const rotationTolerance = 1e-6

// Pose is a rigid transform p -> R*p + t. The zero value is not valid; use NewZeroPose.
type Pose struct {
	orientation quat.Number
	rotation    RotationMatrix
	translation r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return NewPose(r3.Vector{}, quat.Number{Real: 1})
}

// NewPose returns a pose from a translation and an orientation quaternion, which is normalized.
func NewPose(translation r3.Vector, orientation quat.Number) Pose {
	q := Normalize(orientation)
	return Pose{
		orientation: q,
		rotation:    QuatToRotationMatrix(q),
		translation: translation,
	}
}

// NewPoseFromRotationMatrix returns a pose from a translation and a rotation matrix.
func NewPoseFromRotationMatrix(translation r3.Vector, rm RotationMatrix) (Pose, error) {
	if err := rm.CheckRotation(rotationTolerance); err != nil {
		return Pose{}, err
	}
	return NewPose(translation, rm.Quaternion()), nil
}

// NewPoseFromHomogeneous builds a pose from a row-major 4x4 homogeneous matrix.
func NewPoseFromHomogeneous(m []float64) (Pose, error) {
	if len(m) != 16 {
		return Pose{}, errors.Errorf("homogeneous matrix needs 16 elements, got %d", len(m))
	}
	if m[12] != 0 || m[13] != 0 || m[14] != 0 || m[15] != 1 {
		return Pose{}, errors.Errorf("last row of homogeneous matrix must be [0 0 0 1], got %v", m[12:])
	}
	rm := RotationMatrix{m[0], m[1], m[2], m[4], m[5], m[6], m[8], m[9], m[10]}
	return NewPoseFromRotationMatrix(r3.Vector{X: m[3], Y: m[7], Z: m[11]}, rm)
}

// NewPoseFromTwist returns exp([omega, translation]) in the small motion form used for pose
// updates: the rotation is the exponential map of omega and the translation is applied after it.
func NewPoseFromTwist(omega, translation r3.Vector) Pose {
	return NewPose(translation, RotationVectorToQuat(omega))
}

// IsValid reports whether the pose holds a unit orientation. The zero Pose does not.
func (p Pose) IsValid() bool {
	return utils.Float64AlmostEqual(quat.Abs(p.orientation), 1, rotationTolerance)
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector {
	return p.translation
}

// Orientation returns the unit quaternion of the rotation.
func (p Pose) Orientation() quat.Number {
	return p.orientation
}

// Rotation returns the rotation matrix.
func (p Pose) Rotation() RotationMatrix {
	return p.rotation
}

// Transform applies the pose to a point.
func (p Pose) Transform(pt r3.Vector) r3.Vector {
	return p.rotation.Mul(pt).Add(p.translation)
}

// Homogeneous returns the pose as a row-major 4x4 matrix.
func (p Pose) Homogeneous() [16]float64 {
	r, t := p.rotation, p.translation
	return [16]float64{
		r[0], r[1], r[2], t.X,
		r[3], r[4], r[5], t.Y,
		r[6], r[7], r[8], t.Z,
		0, 0, 0, 1,
	}
}

// Invert returns the inverse transform.
func (p Pose) Invert() Pose {
	q := quat.Conj(p.orientation)
	rt := p.rotation.Transpose()
	return Pose{
		orientation: q,
		rotation:    rt,
		translation: rt.Mul(p.translation).Mul(-1),
	}
}

// Compose returns the pose that applies b first and then a.
func Compose(a, b Pose) Pose {
	return NewPose(a.Transform(b.translation), quat.Mul(a.orientation, b.orientation))
}

// PoseAlmostEqual reports whether two poses are within epsilon in translation and in rotation angle.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	if a.translation.Sub(b.translation).Norm() > epsilon {
		return false
	}
	return OrientationDistance(a.orientation, b.orientation) <= epsilon
}

// OrientationDistance is the angle in radians of the rotation taking q1 to q2.
func OrientationDistance(q1, q2 quat.Number) float64 {
	d := quat.Mul(q2, quat.Conj(q1))
	w := math.Min(1, math.Abs(d.Real))
	return 2 * math.Acos(w)
}

func (p Pose) String() string {
	q := p.orientation
	return fmt.Sprintf("{t: [%.4f %.4f %.4f], q: [%.4f %.4f %.4f %.4f]}",
		p.translation.X, p.translation.Y, p.translation.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
}
