package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/cozy-creator/cropguard/internal/classifier"
)

var ErrWorkerStopped = errors.New("inference worker is stopped")

// Classifier is the blocking pipeline run on pool goroutines.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (*classifier.PredictionResult, error)
}

type classifyResult struct {
	result *classifier.PredictionResult
	err    error
}

// InferenceWorker bounds how many classifications run at once. Callers wait
// on their own context, so a timed-out request returns while its task is
// still draining on the pool.
type InferenceWorker struct {
	wp         *workerpool.WorkerPool
	classifier Classifier

	mu      sync.RWMutex
	stopped bool
}

func NewInferenceWorker(c Classifier, maxWorkers int) *InferenceWorker {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	return &InferenceWorker{
		wp:         workerpool.New(maxWorkers),
		classifier: c,
	}
}

func (w *InferenceWorker) Classify(ctx context.Context, raw []byte) (*classifier.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response := make(chan classifyResult, 1)

	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return nil, ErrWorkerStopped
	}
	w.wp.Submit(func() {
		result, err := w.classifier.Classify(ctx, raw)
		response <- classifyResult{result: result, err: err}
	})
	w.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-response:
		return r.result, r.err
	}
}

// Waiting reports how many tasks are queued behind busy workers.
func (w *InferenceWorker) Waiting() int {
	return w.wp.WaitingQueueSize()
}

// Stop waits for queued and running tasks, then rejects new ones.
func (w *InferenceWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.wp.StopWait()
}
