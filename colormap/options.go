package colormap

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ColorWeighting selects how the color samples of a vertex are combined.
type ColorWeighting string

const (
	// WeightingUniform averages every valid sample equally.
	WeightingUniform ColorWeighting = "uniform"
	// WeightingDepthConsistency weights samples by how well the depth map agrees with the
	// projected vertex depth.
	WeightingDepthConsistency ColorWeighting = "depth_consistency"
)

// Mode is the camera refinement performed during optimization.
type Mode int

const (
	// ModeDisabled keeps the cameras fixed and only averages colors.
	ModeDisabled Mode = iota
	// ModeRigid refines a 6-DOF pose per frame.
	ModeRigid
	// ModeNonRigid refines a pose and an image warping field per frame.
	ModeNonRigid
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeRigid:
		return "rigid"
	case ModeNonRigid:
		return "non_rigid"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options configures a color map optimization. Distances are in meters and image sizes in
// pixels of the (possibly downsampled) images.
type Options struct {
	MaximumIteration                          int            `json:"maximum_iteration"`
	NonRigidCameraCoordinate                  bool           `json:"non_rigid_camera_coordinate"`
	NumberOfVerticalAnchors                   int            `json:"number_of_vertical_anchors"`
	NonRigidAnchorPointWeight                 float64        `json:"non_rigid_anchor_point_weight"`
	MaximumAllowableDepth                     float64        `json:"maximum_allowable_depth"`
	DepthThresholdForVisibilityCheck          float64        `json:"depth_threshold_for_visibility_check"`
	DepthThresholdForDiscontinuityCheck       float64        `json:"depth_threshold_for_discontinuity_check"`
	HalfDilationKernelSizeForDiscontinuityMap int            `json:"half_dilation_kernel_size_for_discontinuity_map"`
	ImageBoundaryMargin                       int            `json:"image_boundary_margin"`
	ImageDownsampleFactor                     int            `json:"image_downsample_factor"`
	ColorWeighting                            ColorWeighting `json:"color_weighting"`
	InvisibleVertexColorFill                  bool           `json:"invisible_vertex_color_fill"`
	InvisibleVertexFillRadius                 float64        `json:"invisible_vertex_fill_radius"`
	MaxConditionNumber                        float64        `json:"max_condition_number"`
	MaxStepHalvings                           int            `json:"max_step_halvings"`
}

// DefaultOptions returns the options used for attributes that are not set.
func DefaultOptions() Options {
	return Options{
		MaximumIteration:                          300,
		NonRigidCameraCoordinate:                  false,
		NumberOfVerticalAnchors:                   16,
		NonRigidAnchorPointWeight:                 0.316,
		MaximumAllowableDepth:                     2.5,
		DepthThresholdForVisibilityCheck:          0.03,
		DepthThresholdForDiscontinuityCheck:       0.1,
		HalfDilationKernelSizeForDiscontinuityMap: 3,
		ImageBoundaryMargin:                       10,
		ImageDownsampleFactor:                     1,
		ColorWeighting:                            WeightingUniform,
		InvisibleVertexColorFill:                  false,
		InvisibleVertexFillRadius:                 0.05,
		MaxConditionNumber:                        1e12,
		MaxStepHalvings:                           4,
	}
}

// NewOptionsFromAttributes decodes an attribute map, such as a parsed YAML or JSON config, on top
// of DefaultOptions. Unknown keys are an error. The result is validated.
func NewOptionsFromAttributes(attributes map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return Options{}, errors.Wrap(ErrInvalidOptions, err.Error())
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Mode returns the refinement mode selected by the options.
func (o Options) Mode() Mode {
	switch {
	case o.MaximumIteration == 0:
		return ModeDisabled
	case o.NonRigidCameraCoordinate:
		return ModeNonRigid
	default:
		return ModeRigid
	}
}

// Validate reports every out of range option.
func (o Options) Validate() error {
	var err error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			err = multierr.Append(err, errors.Wrapf(ErrInvalidOptions, format, args...))
		}
	}
	check(o.MaximumIteration >= 0, "maximum_iteration must be non-negative, got %d", o.MaximumIteration)
	check(o.NumberOfVerticalAnchors >= 2, "number_of_vertical_anchors must be at least 2, got %d", o.NumberOfVerticalAnchors)
	check(o.NonRigidAnchorPointWeight >= 0, "non_rigid_anchor_point_weight must be non-negative, got %v", o.NonRigidAnchorPointWeight)
	check(o.MaximumAllowableDepth > 0, "maximum_allowable_depth must be positive, got %v", o.MaximumAllowableDepth)
	check(o.DepthThresholdForVisibilityCheck > 0,
		"depth_threshold_for_visibility_check must be positive, got %v", o.DepthThresholdForVisibilityCheck)
	check(o.DepthThresholdForDiscontinuityCheck > 0,
		"depth_threshold_for_discontinuity_check must be positive, got %v", o.DepthThresholdForDiscontinuityCheck)
	check(o.HalfDilationKernelSizeForDiscontinuityMap >= 0,
		"half_dilation_kernel_size_for_discontinuity_map must be non-negative, got %d", o.HalfDilationKernelSizeForDiscontinuityMap)
	check(o.ImageBoundaryMargin >= 1, "image_boundary_margin must be at least 1, got %d", o.ImageBoundaryMargin)
	check(o.ImageDownsampleFactor >= 1, "image_downsample_factor must be at least 1, got %d", o.ImageDownsampleFactor)
	check(o.ColorWeighting == WeightingUniform || o.ColorWeighting == WeightingDepthConsistency,
		"color_weighting must be %q or %q, got %q", WeightingUniform, WeightingDepthConsistency, o.ColorWeighting)
	check(o.InvisibleVertexFillRadius > 0, "invisible_vertex_fill_radius must be positive, got %v", o.InvisibleVertexFillRadius)
	check(o.MaxConditionNumber > 1, "max_condition_number must be greater than 1, got %v", o.MaxConditionNumber)
	check(o.MaxStepHalvings >= 0, "max_step_halvings must be non-negative, got %d", o.MaxStepHalvings)
	return err
}
