package classifier

import (
	"context"
	"errors"

	"github.com/cozy-creator/cropguard/internal/imageutil"
)

var (
	ErrModelUnavailable = errors.New("model is not loaded")
	ErrEmptyOutput      = errors.New("model returned no scores")
	ErrNonFiniteScore   = errors.New("model returned a non-finite score")
)

// Failure kinds used in logs and metrics.
const (
	FailureDecode    = "decode"
	FailureShape     = "shape"
	FailureTimeout   = "timeout"
	FailureModel     = "model_unavailable"
	FailureInference = "inference"
)

// FailureKind classifies an error returned by Classify.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, imageutil.ErrDecode):
		return FailureDecode
	case errors.Is(err, imageutil.ErrShapeMismatch):
		return FailureShape
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FailureTimeout
	case errors.Is(err, ErrModelUnavailable):
		return FailureModel
	default:
		return FailureInference
	}
}
