// Package inference wraps the ONNX classification and segmentation models
// behind small session interfaces. The engines are pure image-in/image-out:
// they know nothing about scans, cases, or artifact storage. Callers decode
// nothing and encode nothing; they hand in the uploaded image bytes and get
// back a prediction, an attribution overlay, or a binary mask.
package inference

import (
	"errors"
)

// Sentinel errors. Both conditions reject the pipeline operation without
// persisting anything.
var (
	// ErrModelUnavailable means the model session was never loaded or has
	// been closed.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrImageDecode means the input bytes are not a decodable image.
	ErrImageDecode = errors.New("image cannot be decoded")
)

// IsInferenceError reports whether err is a model or image failure, as
// opposed to an I/O or storage failure.
func IsInferenceError(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrImageDecode)
}
