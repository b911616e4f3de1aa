package detections

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindImageDecode ErrorKind = "invalid_image"
	KindModelLoad   ErrorKind = "model_unavailable"
	KindInference   ErrorKind = "inference_error"
)

var (
	ErrImageDecode = errors.New("image decode failed")
	ErrModelLoad   = errors.New("model load failed")
	ErrInference   = errors.New("inference failed")
)

var kindSentinels = map[ErrorKind]error{
	KindImageDecode: ErrImageDecode,
	KindModelLoad:   ErrModelLoad,
	KindInference:   ErrInference,
}

// ProcessingError is returned by Analyze for every failed request. Kind
// selects the matching sentinel for errors.Is.
type ProcessingError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func (e *ProcessingError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func imageDecodeError(cause error) error {
	return &ProcessingError{Kind: KindImageDecode, Message: "cannot identify image file", Cause: cause}
}

func modelLoadError(cause error) error {
	return &ProcessingError{Kind: KindModelLoad, Message: "failed to load ML model", Cause: cause}
}

func inferenceError(cause error) error {
	return &ProcessingError{Kind: KindInference, Message: "model inference", Cause: cause}
}

// KindOf extracts the ErrorKind of err, or "" if err is not a ProcessingError.
func KindOf(err error) ErrorKind {
	var perr *ProcessingError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ""
}
