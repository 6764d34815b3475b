// Package transform holds the pinhole camera model that maps mesh vertices into frames.
package transform

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/colormap/spatialmath"
)

var (
	// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
	ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")
	// ErrProjectionFailure is the parent of every reason a point cannot be seen by a camera.
	ErrProjectionFailure = errors.New("point does not project into the camera")
	// ErrBehindCamera is returned when a point has non-positive depth in the camera frame.
	ErrBehindCamera = errors.Wrap(ErrProjectionFailure, "point is behind the camera")
	// ErrOutOfFrame is returned when a point projects outside of the image bounds.
	ErrOutOfFrame = errors.Wrap(ErrProjectionFailure, "point projects outside of the image")
)

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PixelToPoint transforms a pixel with depth to a 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return float64(0), float64(0), float64(0)
	}
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point in the camera frame to fractional pixel coordinates. Pixel
// centers are at integer coordinates. Points with zero depth map to (-1, -1).
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		return (x/z)*params.Fx + params.Ppx, (y/z)*params.Fy + params.Ppy
	}
	return -1.0, -1.0
}

// InBounds reports whether (u, v) lies at least margin pixels inside the image.
func (params *PinholeCameraIntrinsics) InBounds(u, v float64, margin int) bool {
	m := float64(margin)
	return u >= m && v >= m && u < float64(params.Width)-m && v < float64(params.Height)-m
}

// Scaled returns the intrinsics of the same camera with images shrunk by an integer factor.
func (params *PinholeCameraIntrinsics) Scaled(factor int) *PinholeCameraIntrinsics {
	if factor <= 1 {
		scaled := *params
		return &scaled
	}
	s := 1 / float64(factor)
	return &PinholeCameraIntrinsics{
		Width:  params.Width / factor,
		Height: params.Height / factor,
		Fx:     params.Fx * s,
		Fy:     params.Fy * s,
		// keep pixel centers aligned: pixel k of the small image covers pixels [k*f, (k+1)*f)
		Ppx: (params.Ppx+0.5)*s - 0.5,
		Ppy: (params.Ppy+0.5)*s - 0.5,
	}
}

// PinholeCameraParameters is one camera of a trajectory: intrinsics plus the world to camera
// transform.
type PinholeCameraParameters struct {
	Intrinsics *PinholeCameraIntrinsics `json:"intrinsic"`
	Extrinsics spatialmath.Pose         `json:"-"`
}

// CameraPoint maps a world point into the camera frame.
func (pcp *PinholeCameraParameters) CameraPoint(world r3.Vector) r3.Vector {
	return pcp.Extrinsics.Transform(world)
}

// Project maps a world point to fractional pixel coordinates and its depth in the camera frame.
// It fails with ErrBehindCamera for non-positive depth and with ErrOutOfFrame when the pixel is
// not inside the image.
func (pcp *PinholeCameraParameters) Project(world r3.Vector) (r2.Point, float64, error) {
	p := pcp.CameraPoint(world)
	if p.Z <= 0 || math.IsNaN(p.Z) {
		return r2.Point{}, p.Z, ErrBehindCamera
	}
	u, v := pcp.Intrinsics.PointToPixel(p.X, p.Y, p.Z)
	if !pcp.Intrinsics.InBounds(u, v, 0) {
		return r2.Point{X: u, Y: v}, p.Z, ErrOutOfFrame
	}
	return r2.Point{X: u, Y: v}, p.Z, nil
}

// Clone returns a deep copy.
func (pcp *PinholeCameraParameters) Clone() *PinholeCameraParameters {
	intrinsics := *pcp.Intrinsics
	return &PinholeCameraParameters{Intrinsics: &intrinsics, Extrinsics: pcp.Extrinsics}
}

// PinholeCameraTrajectory is an ordered list of cameras, one per frame.
type PinholeCameraTrajectory struct {
	Parameters []*PinholeCameraParameters
}

// Len returns the number of cameras.
func (traj *PinholeCameraTrajectory) Len() int {
	return len(traj.Parameters)
}

// Clone returns a deep copy.
func (traj *PinholeCameraTrajectory) Clone() *PinholeCameraTrajectory {
	out := &PinholeCameraTrajectory{Parameters: make([]*PinholeCameraParameters, len(traj.Parameters))}
	for i, p := range traj.Parameters {
		out.Parameters[i] = p.Clone()
	}
	return out
}
