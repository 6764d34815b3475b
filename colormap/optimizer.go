// Package colormap optimizes the vertex colors of a triangle mesh from a sequence of posed RGB-D
// frames. The camera poses can be refined rigidly, or rigidly plus a per-frame image warp, to
// minimize the photometric disagreement between frames before the colors are fused.
package colormap

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/colormap/logging"
	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/utils"
)

// State is the progress of an optimization.
type State struct {
	// Iteration is the number of completed refinement iterations.
	Iteration int
	// Residual is the root mean square photometric residual at the current parameters.
	Residual float64
	// History holds the residual at the start of every iteration.
	History []float64
	// SkippedUpdates counts frame updates dropped because the system was singular.
	SkippedUpdates int
	// RejectedUpdates counts frame updates dropped because no step size reduced the residual.
	RejectedUpdates int
	// Converged is set once the configured number of iterations has run.
	Converged bool
}

// Summary describes a finished optimization.
type Summary struct {
	State
	Mode Mode

	// FrameResiduals is the final root mean square residual of every frame.
	FrameResiduals      []float64
	MedianFrameResidual float64
	MaxFrameResidual    float64

	Observations     int
	UnseenVertices   int
	ColoredVertices  int
	FilledVertices   int
	FallbackVertices int
}

// An Optimizer runs color map optimizations with fixed options.
type Optimizer struct {
	opts   Options
	logger logging.Logger
}

// NewOptimizer validates opts and returns an optimizer using them.
func NewOptimizer(opts Options, logger logging.Logger) (*Optimizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{opts: opts, logger: logger}, nil
}

// Options returns a copy of the optimizer's options.
func (o *Optimizer) Options() Options {
	return o.opts
}

// ColorMapOptimization optimizes the colors of m in place from frames. It is a convenience
// wrapper around NewOptimizer and Optimize.
func ColorMapOptimization(ctx context.Context, m *mesh.TriangleMesh, frames []Frame, opts Options, logger logging.Logger) error {
	o, err := NewOptimizer(opts, logger)
	if err != nil {
		return err
	}
	_, err = o.Optimize(ctx, m, frames)
	return err
}

func validateInputs(m *mesh.TriangleMesh, frames []Frame) error {
	if err := m.Validate(); err != nil {
		return errors.Wrapf(ErrInputMismatch, "%v", err)
	}
	if len(frames) == 0 {
		return newInputMismatchError("no frames")
	}
	for i, f := range frames {
		if err := validateFrame(i, f); err != nil {
			return err
		}
	}
	return nil
}

// Optimize refines the cameras of frames according to the options and then sets the colors of m
// to the fused frame colors. On success the refined extrinsics are written back to the frames'
// cameras. Cancelling ctx stops the optimization between iterations; nothing is written then.
func (o *Optimizer) Optimize(ctx context.Context, m *mesh.TriangleMesh, frames []Frame) (*Summary, error) {
	if err := validateInputs(m, frames); err != nil {
		return nil, err
	}
	m.EnsureColors()
	mode := o.opts.Mode()
	logger := o.logger.WithFields("mode", mode.String())
	logger.Infow("starting color map optimization",
		"frames", len(frames),
		"vertices", m.NumVertices(),
		"iterations", o.opts.MaximumIteration,
	)

	fds, err := preprocessFrames(ctx, frames, o.opts)
	if err != nil {
		return nil, err
	}
	if mode == ModeNonRigid {
		widths := make([]int, len(fds))
		heights := make([]int, len(fds))
		for i, fd := range fds {
			widths[i], heights[i] = fd.color.Width(), fd.color.Height()
		}
		for i, field := range newWarpingFields(widths, heights, o.opts.NumberOfVerticalAnchors) {
			fds[i].field = field
		}
	}

	state := &State{}
	for it := 0; it < o.opts.MaximumIteration; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.iterate(ctx, logger, m, fds, state); err != nil {
			return nil, err
		}
	}
	state.Converged = true

	vis, err := computeVisibility(ctx, m, fds, o.opts)
	if err != nil {
		return nil, err
	}
	proxy, err := computeProxyIntensity(ctx, m, fds, vis, o.opts)
	if err != nil {
		return nil, err
	}
	frameResiduals, residual, err := o.residuals(ctx, m, fds, vis, proxy)
	if err != nil {
		return nil, err
	}
	state.Residual = residual
	agg, err := aggregateColors(ctx, m, fds, vis, o.opts)
	if err != nil {
		return nil, err
	}
	for i, fd := range fds {
		frames[i].Camera.Extrinsics = fd.camera.Extrinsics
	}

	summary := &Summary{
		State:            *state,
		Mode:             mode,
		FrameResiduals:   frameResiduals,
		Observations:     vis.NumObservations(),
		UnseenVertices:   vis.NumUnseen(),
		ColoredVertices:  agg.colored,
		FilledVertices:   agg.filled,
		FallbackVertices: agg.fallback,
	}
	if med, err := stats.Median(frameResiduals); err == nil {
		summary.MedianFrameResidual = med
	}
	if mx, err := stats.Max(frameResiduals); err == nil {
		summary.MaxFrameResidual = mx
	}
	logger.Infow("finished color map optimization",
		"residual", summary.Residual,
		"median_frame_residual", summary.MedianFrameResidual,
		"skipped_updates", summary.SkippedUpdates,
		"rejected_updates", summary.RejectedUpdates,
		"colored", summary.ColoredVertices,
		"filled", summary.FilledVertices,
		"fallback", summary.FallbackVertices,
	)
	return summary, nil
}

// iterate recomputes visibility and the proxy intensity, then refines every frame once.
func (o *Optimizer) iterate(ctx context.Context, logger logging.Logger, m *mesh.TriangleMesh, fds []*frameData, state *State) error {
	vis, err := computeVisibility(ctx, m, fds, o.opts)
	if err != nil {
		return err
	}
	proxy, err := computeProxyIntensity(ctx, m, fds, vis, o.opts)
	if err != nil {
		return err
	}
	steps, err := refineFrames(ctx, m, fds, vis, proxy, o.opts)
	if err != nil {
		return err
	}

	sums := make([]float64, len(steps))
	counts := make([]float64, len(steps))
	for f, step := range steps {
		sums[f], counts[f] = step.sumSquares, float64(step.samples)
		switch {
		case step.err != nil:
			state.SkippedUpdates++
			logger.Debugw("skipping frame update", "iteration", state.Iteration, "frame", f, "error", step.err)
		case !step.accepted:
			state.RejectedUpdates++
			logger.Debugw("rejecting frame update", "iteration", state.Iteration, "frame", f, "objective", step.before)
		}
	}
	state.Residual = rms(floats.Sum(sums), floats.Sum(counts))
	state.History = append(state.History, state.Residual)
	logger.Debugw("color map iteration",
		"iteration", state.Iteration,
		"residual", state.Residual,
		"observations", vis.NumObservations(),
	)
	state.Iteration++
	return nil
}

// residuals returns the root mean square photometric residual of every frame and of all frames
// together. Frames are evaluated in parallel and reduced in order.
func (o *Optimizer) residuals(
	ctx context.Context,
	m *mesh.TriangleMesh,
	fds []*frameData,
	vis *Visibility,
	proxy *proxyIntensity,
) ([]float64, float64, error) {
	sums := make([]float64, len(fds))
	counts := make([]float64, len(fds))
	err := utils.ParallelForEach(ctx, len(fds), 1, func(f int) {
		s, c := photometricResidual(fds[f], m, vis.FrameVertices[f], proxy, o.opts.ImageBoundaryMargin)
		sums[f], counts[f] = s, float64(c)
	})
	if err != nil {
		return nil, 0, err
	}
	perFrame := make([]float64, len(fds))
	for f := range fds {
		perFrame[f] = rms(sums[f], counts[f])
	}
	return perFrame, rms(floats.Sum(sums), floats.Sum(counts)), nil
}

func rms(sumSquares, count float64) float64 {
	if count == 0 {
		return 0
	}
	return math.Sqrt(sumSquares / count)
}
