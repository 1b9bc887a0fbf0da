package classifier

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/labels"
	"github.com/cozy-creator/cropguard/internal/model"
)

const topCandidates = 3

type PredictionResult struct {
	ClassName  string  `json:"class_name"`
	DiseaseID  string  `json:"disease_id"`
	Confidence float32 `json:"confidence"`
	IsHealthy  bool    `json:"is_healthy"`
}

type Candidate struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Observer is notified of every classification outcome.
type Observer interface {
	ObservePrediction(result *PredictionResult, elapsed time.Duration)
	ObserveFailure(kind string)
}

type Option func(s *Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithSoftmax turns raw logits into probabilities before picking the class.
func WithSoftmax(enabled bool) Option {
	return func(s *Service) {
		s.softmax = enabled
	}
}

// Service classifies uploaded images. All fields are set at construction and
// never modified, so one Service is shared by every request.
type Service struct {
	model    model.Model
	labels   labels.Set
	prep     *imageutil.Preprocessor
	softmax  bool
	logger   *zap.Logger
	observer Observer
}

func New(m model.Model, set labels.Set, prep *imageutil.Preprocessor, opts ...Option) (*Service, error) {
	if prep == nil {
		return nil, fmt.Errorf("preprocessor is required")
	}
	if set.Table.Len() == 0 {
		return nil, labels.ErrEmptyTable
	}

	s := &Service{
		model:  m,
		labels: set,
		prep:   prep,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Labels() labels.Set {
	return s.labels
}

func (s *Service) Preprocessor() *imageutil.Preprocessor {
	return s.prep
}

// Classify runs the full pipeline on the raw bytes of an uploaded file.
func (s *Service) Classify(ctx context.Context, raw []byte) (*PredictionResult, error) {
	start := time.Now()

	result, err := s.classify(ctx, raw)
	if err != nil {
		if s.observer != nil {
			s.observer.ObserveFailure(FailureKind(err))
		}
		return nil, err
	}

	if s.observer != nil {
		s.observer.ObservePrediction(result, time.Since(start))
	}
	return result, nil
}

func (s *Service) classify(ctx context.Context, raw []byte) (*PredictionResult, error) {
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	tensor, src, err := s.prep.Prepare(raw)
	if err != nil {
		s.logger.Debug("Failed to preprocess upload",
			zap.String("content_type", src.ContentType),
			zap.Int("bytes", len(raw)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Debug("Preprocessed upload",
		zap.String("content_type", src.ContentType),
		zap.Int("width", src.Size.X),
		zap.Int("height", src.Size.Y),
	)

	return s.Predict(ctx, tensor)
}

// Predict runs inference on an already prepared tensor and maps the
// highest-scoring class to a result.
func (s *Service) Predict(ctx context.Context, tensor *imageutil.Tensor) (*PredictionResult, error) {
	if s.model == nil {
		return nil, ErrModelUnavailable
	}

	if err := tensor.Validate(); err != nil {
		return nil, err
	}
	if !tensor.MatchesShape(s.prep.InputShape()) {
		return nil, fmt.Errorf("%w: got %v, want %v", imageutil.ErrShapeMismatch, tensor.Shape, s.prep.InputShape())
	}

	scores, err := s.model.Infer(ctx, tensor)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrEmptyOutput
	}
	if i := nonFinite(scores); i >= 0 {
		return nil, fmt.Errorf("%w: index %d is %v", ErrNonFiniteScore, i, scores[i])
	}

	if len(scores) != s.labels.Table.Len() {
		s.logger.Warn("Model output length differs from label table",
			zap.Int("scores", len(scores)),
			zap.Int("labels", s.labels.Table.Len()),
		)
	}

	if s.softmax {
		scores = model.Softmax(scores)
	}

	result := s.resultFor(scores)

	s.logger.Info("Prediction",
		zap.String("class_name", result.ClassName),
		zap.String("disease_id", result.DiseaseID),
		zap.Float32("confidence", result.Confidence),
		zap.Any("top", TopK(scores, s.labels.Table, topCandidates)),
	)

	return result, nil
}

func (s *Service) resultFor(scores []float32) *PredictionResult {
	idx, confidence := ArgMax(scores)

	className, ok := s.labels.Table.At(idx)
	if !ok {
		s.logger.Warn("Predicted class index is outside the label table",
			zap.Int("index", idx),
			zap.Int("labels", s.labels.Table.Len()),
		)
		className = labels.UnknownClass
	}

	return &PredictionResult{
		ClassName:  className,
		DiseaseID:  s.labels.Mapping.Lookup(className),
		Confidence: confidence,
		IsHealthy:  labels.IsHealthy(className),
	}
}

// ArgMax returns the index and value of the largest score. Ties go to the
// lowest index. An empty slice yields -1.
func ArgMax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}

	idx, max := 0, scores[0]
	for i, v := range scores[1:] {
		if v > max {
			idx, max = i+1, v
		}
	}
	return idx, max
}

func nonFinite(scores []float32) int {
	for i, v := range scores {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}

// TopK returns the k best-scoring classes, highest first.
func TopK(scores []float32, table labels.Table, k int) []Candidate {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	candidates := make([]Candidate, 0, k)
	for _, i := range order[:k] {
		label, ok := table.At(i)
		if !ok {
			label = labels.UnknownClass
		}
		candidates = append(candidates, Candidate{Label: label, Score: scores[i]})
	}
	return candidates
}
