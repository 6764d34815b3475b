package colormap

import (
	"context"
	"image"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/colormap/rimage"
	"go.viam.com/colormap/rimage/transform"
	"go.viam.com/colormap/spatialmath"
	"go.viam.com/colormap/utils"
)

// Frame is one posed RGB-D observation. Color and Depth are read only; the extrinsics of Camera
// are replaced with the refined pose when an optimization succeeds.
type Frame struct {
	Color  image.Image
	Depth  *rimage.DepthMap
	Camera *transform.PinholeCameraParameters
}

// NewFrames zips color images, depth maps and a trajectory into frames.
func NewFrames(colors []image.Image, depths []*rimage.DepthMap, traj *transform.PinholeCameraTrajectory) ([]Frame, error) {
	if traj == nil {
		return nil, newInputMismatchError("no camera trajectory")
	}
	if len(colors) != len(depths) || len(colors) != traj.Len() {
		return nil, newInputMismatchError("%d color images, %d depth images and %d cameras", len(colors), len(depths), traj.Len())
	}
	frames := make([]Frame, len(colors))
	for i := range colors {
		frames[i] = Frame{Color: colors[i], Depth: depths[i], Camera: traj.Parameters[i]}
	}
	return frames, nil
}

func validateFrame(i int, f Frame) error {
	if f.Color == nil || f.Depth == nil || f.Camera == nil {
		return newInputMismatchError("frame %d is missing its color image, depth image or camera", i)
	}
	if !f.Camera.Extrinsics.IsValid() {
		return newInputMismatchError("frame %d camera has no valid extrinsics", i)
	}
	if err := f.Camera.Intrinsics.CheckValid(); err != nil {
		return errors.Wrapf(ErrInputMismatch, "frame %d: %v", i, err)
	}
	cb, db := f.Color.Bounds(), f.Depth.Bounds()
	if cb.Dx() != db.Dx() || cb.Dy() != db.Dy() {
		return newInputMismatchError("frame %d color image is %dx%d but depth image is %dx%d", i, cb.Dx(), cb.Dy(), db.Dx(), db.Dy())
	}
	if in := f.Camera.Intrinsics; in.Width != cb.Dx() || in.Height != cb.Dy() {
		return newInputMismatchError("frame %d intrinsics are for %dx%d images but the images are %dx%d",
			i, in.Width, in.Height, cb.Dx(), cb.Dy())
	}
	return nil
}

// frameData is the per-frame working state: preprocessed images and the camera being refined.
type frameData struct {
	index    int
	camera   *transform.PinholeCameraParameters
	color    *rimage.Image
	depth    *rimage.DepthMap
	gradient *rimage.GradientImages
	mask     *rimage.Mask
	// nil unless refining non-rigidly
	field *WarpingField
}

// preprocessFrames downsamples every frame and computes its gradient images and depth
// discontinuity mask, in parallel over frames.
func preprocessFrames(ctx context.Context, frames []Frame, opts Options) ([]*frameData, error) {
	out := make([]*frameData, len(frames))
	err := utils.GroupWorkParallel(ctx, len(frames), 1, func(_, from, to int) error {
		for i := from; i < to; i++ {
			fd, err := preprocessFrame(i, frames[i], opts)
			if err != nil {
				return errors.Wrapf(err, "frame %d", i)
			}
			out[i] = fd
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func preprocessFrame(i int, f Frame, opts Options) (*frameData, error) {
	colorImg, err := rimage.DownsampleImage(f.Color, opts.ImageDownsampleFactor)
	if err != nil {
		return nil, err
	}
	depth, err := rimage.DownsampleDepthMap(f.Depth, opts.ImageDownsampleFactor)
	if err != nil {
		return nil, err
	}
	img := rimage.NewImageFromStdImage(colorImg)
	gradient, err := rimage.NewGradientImages(img.Gray())
	if err != nil {
		return nil, err
	}
	mask, err := rimage.DepthBoundaryMask(depth,
		opts.DepthThresholdForDiscontinuityCheck, opts.HalfDilationKernelSizeForDiscontinuityMap)
	if err != nil {
		return nil, err
	}
	return &frameData{
		index: i,
		camera: &transform.PinholeCameraParameters{
			Intrinsics: f.Camera.Intrinsics.Scaled(opts.ImageDownsampleFactor),
			Extrinsics: f.Camera.Extrinsics,
		},
		color:    img,
		depth:    depth,
		gradient: gradient,
		mask:     mask,
	}, nil
}

// visibilityScore tests whether a vertex is seen by the frame at its current pose. The score is the
// depth disagreement as a fraction of the tolerance.
func (fd *frameData) visibilityScore(p r3.Vector, opts Options) (float64, bool) {
	px, z, err := fd.camera.Project(p)
	if err != nil {
		return 0, false
	}
	x, y := int(math.Round(px.X)), int(math.Round(px.Y))
	if !fd.depth.In(x, y) || fd.mask.At(x, y) {
		return 0, false
	}
	d := fd.depth.MetersAt(x, y)
	if d <= 0 || d > opts.MaximumAllowableDepth {
		return 0, false
	}
	diff := math.Abs(d - z)
	if diff >= opts.DepthThresholdForVisibilityCheck {
		return 0, false
	}
	return diff / opts.DepthThresholdForVisibilityCheck, true
}

// observation is where a world point is sampled in a frame.
type observation struct {
	// camera space point
	p r3.Vector
	// sampling location after warping
	u, v float64
	warp warpSample
}

// observe projects a world point with the given pose, applies the frame's warping field if any,
// and reports whether the sampling location is at least margin pixels inside the image.
func (fd *frameData) observe(world r3.Vector, pose spatialmath.Pose, margin int) (observation, bool) {
	p := pose.Transform(world)
	if p.Z <= 0 {
		return observation{}, false
	}
	in := fd.camera.Intrinsics
	u, v := in.PointToPixel(p.X, p.Y, p.Z)
	obs := observation{p: p, u: u, v: v}
	if fd.field != nil {
		ws, ok := fd.field.Warp(u, v)
		if !ok {
			return observation{}, false
		}
		obs.u, obs.v, obs.warp = ws.U, ws.V, ws
	}
	if !in.InBounds(obs.u, obs.v, margin) {
		return observation{}, false
	}
	return obs, true
}
