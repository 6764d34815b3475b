package colormap

import (
	"errors"
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	test.That(t, opts.Validate(), test.ShouldBeNil)
	test.That(t, opts.MaximumIteration, test.ShouldEqual, 300)
	test.That(t, opts.NumberOfVerticalAnchors, test.ShouldEqual, 16)
	test.That(t, opts.NonRigidAnchorPointWeight, test.ShouldEqual, 0.316)
	test.That(t, opts.MaximumAllowableDepth, test.ShouldEqual, 2.5)
	test.That(t, opts.DepthThresholdForVisibilityCheck, test.ShouldEqual, 0.03)
	test.That(t, opts.DepthThresholdForDiscontinuityCheck, test.ShouldEqual, 0.1)
	test.That(t, opts.HalfDilationKernelSizeForDiscontinuityMap, test.ShouldEqual, 3)
	test.That(t, opts.ImageBoundaryMargin, test.ShouldEqual, 10)
	test.That(t, opts.ColorWeighting, test.ShouldEqual, WeightingUniform)
	// unseen vertices keep their color unless filling is asked for
	test.That(t, opts.InvisibleVertexColorFill, test.ShouldBeFalse)
	test.That(t, opts.Mode(), test.ShouldEqual, ModeRigid)
}

func TestMode(t *testing.T) {
	opts := DefaultOptions()
	opts.NonRigidCameraCoordinate = true
	test.That(t, opts.Mode(), test.ShouldEqual, ModeNonRigid)
	test.That(t, opts.Mode().String(), test.ShouldEqual, "non_rigid")
	opts.MaximumIteration = 0
	test.That(t, opts.Mode(), test.ShouldEqual, ModeDisabled)
	test.That(t, opts.Mode().String(), test.ShouldEqual, "disabled")
	test.That(t, ModeRigid.String(), test.ShouldEqual, "rigid")
	test.That(t, Mode(7).String(), test.ShouldEqual, "Mode(7)")
}

func TestNewOptionsFromAttributes(t *testing.T) {
	opts, err := NewOptionsFromAttributes(map[string]interface{}{
		"maximum_iteration":           5.0,
		"non_rigid_camera_coordinate": true,
		"number_of_vertical_anchors":  8,
		"color_weighting":             "depth_consistency",
		"image_downsample_factor":     "2",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.MaximumIteration, test.ShouldEqual, 5)
	test.That(t, opts.NonRigidCameraCoordinate, test.ShouldBeTrue)
	test.That(t, opts.NumberOfVerticalAnchors, test.ShouldEqual, 8)
	test.That(t, opts.ColorWeighting, test.ShouldEqual, WeightingDepthConsistency)
	test.That(t, opts.ImageDownsampleFactor, test.ShouldEqual, 2)
	// unset keys keep their defaults
	test.That(t, opts.MaximumAllowableDepth, test.ShouldEqual, 2.5)

	opts, err = NewOptionsFromAttributes(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts, test.ShouldResemble, DefaultOptions())

	_, err = NewOptionsFromAttributes(map[string]interface{}{"maximum_iterations": 5})
	test.That(t, errors.Is(err, ErrInvalidOptions), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "maximum_iterations")

	_, err = NewOptionsFromAttributes(map[string]interface{}{"color_weighting": "median"})
	test.That(t, errors.Is(err, ErrInvalidOptions), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "median")
}

func TestValidate(t *testing.T) {
	opts := DefaultOptions()
	opts.MaximumIteration = -1
	opts.NumberOfVerticalAnchors = 1
	opts.ImageBoundaryMargin = 0
	opts.MaxConditionNumber = 1
	err := opts.Validate()
	test.That(t, errors.Is(err, ErrInvalidOptions), test.ShouldBeTrue)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 4)

	_, err = NewOptimizer(opts, nil)
	test.That(t, errors.Is(err, ErrInvalidOptions), test.ShouldBeTrue)
}
