package colormap

import "github.com/pkg/errors"

var (
	// ErrInputMismatch is returned before any work when the frames, cameras and mesh do not agree.
	ErrInputMismatch = errors.New("color map optimization inputs do not match")
	// ErrSingularSystem is recorded when a frame's normal equations cannot be solved. The frame
	// keeps its parameters for that iteration.
	ErrSingularSystem = errors.New("normal equations are singular or ill-conditioned")
	// ErrInvalidOptions wraps every option validation failure.
	ErrInvalidOptions = errors.New("invalid color map optimization options")
)

func newInputMismatchError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInputMismatch, format, args...)
}
