package imageutil

import (
	"errors"
	"fmt"
	"strings"
)

// Normalization maps raw [0,255] intensities into the range the model was
// trained on. A mismatch does not fail; it silently skews predictions.
type Normalization int

const (
	NormalizationUnset Normalization = iota
	// NormalizeUnit divides by 255, giving [0,1].
	NormalizeUnit
	// NormalizeSymmetric computes x/127.5 - 1, giving [-1,1].
	NormalizeSymmetric
)

var ErrNormalizationUnset = errors.New("normalization policy is not configured")

func ParseNormalization(name string) (Normalization, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unit":
		return NormalizeUnit, nil
	case "symmetric":
		return NormalizeSymmetric, nil
	case "":
		return NormalizationUnset, ErrNormalizationUnset
	default:
		return NormalizationUnset, fmt.Errorf("unsupported normalization policy: %q", name)
	}
}

func (n Normalization) String() string {
	switch n {
	case NormalizeUnit:
		return "unit"
	case NormalizeSymmetric:
		return "symmetric"
	default:
		return "unset"
	}
}

// Range returns the bounds that normalized values fall into.
func (n Normalization) Range() (lo, hi float32) {
	switch n {
	case NormalizeSymmetric:
		return -1, 1
	default:
		return 0, 1
	}
}

// Apply normalizes data in place.
func (n Normalization) Apply(data []float32) error {
	switch n {
	case NormalizeUnit:
		for i, v := range data {
			data[i] = v / 255.0
		}
	case NormalizeSymmetric:
		for i, v := range data {
			data[i] = v/127.5 - 1.0
		}
	default:
		return ErrNormalizationUnset
	}
	return nil
}
