package models

import "fmt"

// InvalidImageError reports malformed or empty image input.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return "invalid image: " + e.Reason
}

// PredictionError reports a failure of the underlying predictor while
// processing the tile at sequence position Index.
type PredictionError struct {
	Index int
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed at tile %d: %v", e.Index, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a violation of the tiling/merging contract.
// It always indicates a programming error, never bad user input.
type ShapeMismatchError struct {
	Op       string
	Expected string
	Got      string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: expected %s, got %s", e.Op, e.Expected, e.Got)
}

// IOError reports a file read or write failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigurationError reports a setup problem such as an unknown task or a
// missing weight file. It is fatal to a run.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
