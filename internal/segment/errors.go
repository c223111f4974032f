package segment

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by all stages. Callers match with errors.Is.
var (
	// ErrInvalidInput marks zero-area images or ROIs and mismatched grid shapes.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration marks out-of-range thresholds, kernels, fractions or areas.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrDegenerateGeometry marks contours without enclosed area. It is counted,
	// never returned from Extract.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// StageError records which pipeline stage rejected its input.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("segmentation error in %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func invalidInput(stage, format string, args ...any) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))}
}

func invalidConfig(stage, format string, args ...any) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))}
}

// ConfigError builds a configuration error for callers validating options
// outside this package.
func ConfigError(stage, format string, args ...any) error {
	return invalidConfig(stage, format, args...)
}

// InputError builds an invalid input error for callers outside this package.
func InputError(stage, format string, args ...any) error {
	return invalidInput(stage, format, args...)
}
