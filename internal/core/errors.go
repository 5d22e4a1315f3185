package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks an input file that could not be read as an image.
	ErrDecode = errors.New("decode failure")
	// ErrEncode marks an output file that could not be written.
	ErrEncode = errors.New("encode failure")
	// ErrLocation marks an input or output directory that cannot be used.
	// It aborts a whole batch.
	ErrLocation = errors.New("location failure")
	// ErrInvalidImage marks a buffer that is not a 3-channel 8-bit image.
	ErrInvalidImage = errors.New("invalid image")
)

// StageError reports which pipeline stage failed for an image
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
