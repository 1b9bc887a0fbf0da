package model

import (
	"context"
	"errors"
	"math"

	"github.com/cozy-creator/cropguard/internal/imageutil"
)

var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrInvalidArtifact  = errors.New("model artifact is invalid")
	ErrModelClosed      = errors.New("model is closed")
)

// Model is a loaded classifier. Implementations must allow concurrent Infer
// calls; the model is shared read-only by every request.
type Model interface {
	// Infer runs one forward pass and returns one score per class.
	Infer(ctx context.Context, input *imageutil.Tensor) ([]float32, error)
	Close() error
}

type Loader interface {
	Load(path string) (Model, error)
}

// Softmax returns a probability distribution over scores. It does not
// change the arg-max.
func Softmax(scores []float32) []float32 {
	out := make([]float32, len(scores))
	if len(scores) == 0 {
		return out
	}

	max := scores[0]
	for _, v := range scores[1:] {
		if v > max {
			max = v
		}
	}

	var sum float64
	for i, v := range scores {
		e := math.Exp(float64(v - max))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
