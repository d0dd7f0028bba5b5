package yolov3

import "github.com/pkg/errors"

// Errors returned by the postprocessor. They are wrapped with context, so match them
// with errors.Is.
var (
	// ErrShapeMismatch reports output tensors that do not match the configuration.
	ErrShapeMismatch = errors.New("output tensor shape mismatch")
	// ErrInvalidImageDimensions reports a non-positive original image width or height.
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrInvalidConfiguration reports a configuration rejected at construction time.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
