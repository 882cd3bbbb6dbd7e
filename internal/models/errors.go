package models

import (
	"errors"
	"fmt"
)

// ErrModelNotLoaded is returned while the inference engine is unavailable.
var ErrModelNotLoaded = errors.New("model is not loaded")

// ErrCacheDisabled is returned by cache endpoints when caching is turned off.
var ErrCacheDisabled = errors.New("prediction cache is disabled")

// FileError reports a missing or unreadable upload before validation begins.
type FileError struct {
	Reason string
}

func (e *FileError) Error() string { return e.Reason }

// ValidationError reports which validation stage rejected an upload and why.
type ValidationError struct {
	Stage  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("image validation failed at %s stage: %s", e.Stage, e.Reason)
}

// CapacityError reports an upload exceeding the configured byte ceiling.
type CapacityError struct {
	Size  int64
	Limit int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("upload of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}

// ProcessingError wraps a preprocessing failure on an already validated image.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return "image processing failed: " + e.Err.Error() }
func (e *ProcessingError) Unwrap() error { return e.Err }

// InferenceError wraps a model runtime failure; it is never cached.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return "prediction failed: " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }

// ErrorTypeOf maps err to the error_type name used in HTTP error bodies and
// batch results. Unrecognized errors report as InternalServerError.
func ErrorTypeOf(err error) string {
	var (
		validationErr *ValidationError
		fileErr       *FileError
		capacityErr   *CapacityError
		processingErr *ProcessingError
		inferenceErr  *InferenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return "InvalidImageError"
	case errors.As(err, &fileErr):
		return "FileValidationError"
	case errors.As(err, &capacityErr):
		return "FileTooLargeError"
	case errors.As(err, &processingErr):
		return "ImageProcessingError"
	case errors.As(err, &inferenceErr):
		return "PredictionError"
	case errors.Is(err, ErrModelNotLoaded):
		return "ModelNotLoadedError"
	case errors.Is(err, ErrCacheDisabled):
		return "CacheDisabledError"
	default:
		return "InternalServerError"
	}
}
