package model

import (
	"context"
	"sync"

	"github.com/cozy-creator/cropguard/internal/imageutil"
)

// Static is a Model that returns a fixed score vector. It records the last
// tensor it was given so callers can inspect what reached inference.
type Static struct {
	Scores []float32
	Err    error

	mu     sync.Mutex
	last   *imageutil.Tensor
	calls  int
	closed bool
}

func NewStatic(scores ...float32) *Static {
	return &Static{Scores: scores}
}

func (s *Static) Infer(ctx context.Context, input *imageutil.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrModelClosed
	}

	s.calls++
	s.last = &imageutil.Tensor{
		Shape: append([]int64(nil), input.Shape...),
		Data:  append([]float32(nil), input.Data...),
	}

	if s.Err != nil {
		return nil, s.Err
	}
	return append([]float32(nil), s.Scores...), nil
}

func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Static) LastInput() *imageutil.Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StaticLoader hands out a prepared Model regardless of path.
type StaticLoader struct {
	Model Model
	Err   error
	Path  string
}

func (l *StaticLoader) Load(path string) (Model, error) {
	l.Path = path
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Model, nil
}
