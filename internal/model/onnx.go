package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/imageutil"
)

type OnnxOptions struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default search path.
	LibraryPath string
	InputName   string
	OutputName  string
	// InputShape is the tensor shape the preprocessor produces.
	InputShape     []int64
	NumClasses     int
	IntraOpThreads int
}

type OnnxLoader struct {
	opts   OnnxOptions
	logger *zap.Logger
}

func NewOnnxLoader(opts OnnxOptions, logger *zap.Logger) *OnnxLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnnxLoader{opts: opts, logger: logger}
}

// The ONNX Runtime environment is process-global. Every open model holds a
// reference and the last Close tears the environment down.
var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs > 0 {
		envRefs--
	}
	if envRefs > 0 || !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func (l *OnnxLoader) Load(path string) (m Model, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat model artifact: %w", err)
	}

	if err := acquireEnvironment(l.opts.LibraryPath); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = releaseEnvironment()
		}
	}()

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	input, err := pickInfo(inputs, l.opts.InputName, "input")
	if err != nil {
		return nil, err
	}
	output, err := pickInfo(outputs, l.opts.OutputName, "output")
	if err != nil {
		return nil, err
	}

	probe := &imageutil.Tensor{Shape: l.opts.InputShape}
	if len(l.opts.InputShape) > 0 && !probe.MatchesShape(input.Dimensions) {
		return nil, fmt.Errorf("%w: model input %q is %v, preprocessing produces %v",
			imageutil.ErrShapeMismatch, input.Name, input.Dimensions, l.opts.InputShape)
	}

	dims := output.Dimensions
	if n := len(dims); n > 0 && dims[n-1] > 0 && l.opts.NumClasses > 0 && int(dims[n-1]) != l.opts.NumClasses {
		l.logger.Warn("Model output width does not match label table",
			zap.Int64("outputs", dims[n-1]),
			zap.Int("labels", l.opts.NumClasses),
		)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if l.opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(l.opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{input.Name}, []string{output.Name}, options)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ONNX session: %v", ErrInvalidArtifact, err)
	}

	l.logger.Info("Loaded ONNX model",
		zap.String("path", path),
		zap.String("input", input.Name),
		zap.Any("input_shape", input.Dimensions),
		zap.String("output", output.Name),
		zap.Any("output_shape", output.Dimensions),
	)

	return &OnnxModel{
		session:    session,
		inputShape: input.Dimensions,
	}, nil
}

func pickInfo(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("%w: model has no %s", ErrInvalidArtifact, kind)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("%w: model has no %s named %q", ErrInvalidArtifact, kind, name)
}

// OnnxModel wraps a DynamicAdvancedSession. Tensors are created per call so
// concurrent Infer calls never share buffers.
type OnnxModel struct {
	mu         sync.RWMutex
	session    *ort.DynamicAdvancedSession
	inputShape ort.Shape
}

func (m *OnnxModel) Infer(ctx context.Context, input *imageutil.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if !input.MatchesShape(m.inputShape) {
		return nil, fmt.Errorf("%w: got %v, model wants %v", imageutil.ErrShapeMismatch, input.Shape, m.inputShape)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrModelClosed
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: output is not a float32 tensor", ErrInvalidArtifact)
	}

	data := outputTensor.GetData()
	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

func (m *OnnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil

	if rerr := releaseEnvironment(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
