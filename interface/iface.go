package iface

import (
	"errors"

	"gocv.io/x/gocv"
)

// Pipeline error taxonomy. Callers distinguish them with errors.Is.
var (
	// ErrInvalidImage means the input bytes could not be decoded into a
	// non-empty image. Recoverable per request.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnknownClass means a backend emitted a class id outside the class
	// table. This is a model/configuration mismatch, fatal for the process.
	ErrUnknownClass = errors.New("unknown class id")

	// ErrEncodingFailed means the annotated image could not be encoded.
	ErrEncodingFailed = errors.New("annotated image encoding failed")

	// ErrInference means the model runtime failed. Distinct from
	// ErrInvalidImage so callers can tell bad input from engine failure.
	ErrInference = errors.New("inference failed")
)

// Backend runs object detection on a decoded image. Implementations carry
// their thresholds from construction; no per-request overrides exist.
// Infer must be safe for concurrent use on separate inputs and must return
// geometry in original-image pixel coordinates.
type Backend interface {
	Infer(img gocv.Mat) ([]RawDetection, error)
	DemoMode() bool
	Close() error
}
