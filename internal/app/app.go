package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/classifier"
	"github.com/cozy-creator/cropguard/internal/config"
	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/labels"
	"github.com/cozy-creator/cropguard/internal/metrics"
	"github.com/cozy-creator/cropguard/internal/model"
	"github.com/cozy-creator/cropguard/internal/modelstore"
	"github.com/cozy-creator/cropguard/internal/utils/strutil"
	"github.com/cozy-creator/cropguard/internal/worker"
	"github.com/cozy-creator/cropguard/pkg/logger"
)

// App is the service context handed to every handler. Everything it holds is
// built once in NewApp and read-only afterwards.
type App struct {
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	Logger *zap.Logger

	labels     labels.Set
	store      *modelstore.Store
	loader     model.Loader
	model      model.Model
	modelPath  string
	metrics    *metrics.Metrics
	classifier *classifier.Service
	worker     *worker.InferenceWorker
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithLoader replaces the ONNX Runtime loader.
func WithLoader(loader model.Loader) OptionFunc {
	return func(app *App) error {
		app.loader = loader
		return nil
	}
}

func WithModelStore(store *modelstore.Store) OptionFunc {
	return func(app *App) error {
		app.store = store
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) OptionFunc {
	return func(app *App) error {
		app.metrics = m
		return nil
	}
}

// NewApp builds the service context. Any failure to load the label set or
// the model is returned; the server must not start without them.
func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := app.init(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) init() error {
	cfg := app.config

	if app.Logger == nil {
		l, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
		if err != nil {
			return err
		}
		app.Logger = l
	}

	set, err := labels.Load(cfg.Labels.Preset, cfg.Labels.File)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	app.labels = set

	if unmapped := set.UnmappedLabels(); len(unmapped) > 0 {
		app.Logger.Warn("Labels without a disease id will report unknown",
			zap.String("label_set", set.Name),
			zap.Strings("labels", unmapped),
		)
	}

	prep, err := imageutil.NewPreprocessor(imageutil.PreprocessOptions{
		Size:          cfg.Image.Size,
		Resample:      cfg.Image.Resample,
		Normalization: cfg.Normalization(),
		AutoOrient:    cfg.Image.AutoOrient,
		MaxPixels:     cfg.Image.MaxPixels,
	})
	if err != nil {
		return fmt.Errorf("failed to configure preprocessing: %w", err)
	}

	if app.metrics == nil {
		app.metrics = metrics.New()
	}

	if app.store == nil {
		store, err := NewModelStore(app.ctx, cfg, app.Logger, nil)
		if err != nil {
			return err
		}
		app.store = store
	}

	if app.loader == nil {
		app.loader = model.NewOnnxLoader(model.OnnxOptions{
			LibraryPath:    cfg.Model.RuntimeLibrary,
			InputName:      cfg.Model.InputName,
			OutputName:     cfg.Model.OutputName,
			InputShape:     prep.InputShape(),
			NumClasses:     set.Table.Len(),
			IntraOpThreads: cfg.Model.IntraOpThreads,
		}, app.Logger)
	}

	app.modelPath, err = app.store.Resolve(app.ctx, cfg.Model.Source, cfg.Model.Checksum)
	if err != nil {
		return fmt.Errorf("failed to resolve model %s: %w", cfg.Model.Source, err)
	}

	app.model, err = app.loader.Load(app.modelPath)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", app.modelPath, err)
	}

	app.classifier, err = classifier.New(app.model, set, prep,
		classifier.WithLogger(app.Logger),
		classifier.WithObserver(app.metrics),
		classifier.WithSoftmax(cfg.Model.Softmax),
	)
	if err != nil {
		return err
	}

	app.worker = worker.NewInferenceWorker(app.classifier, cfg.Inference.Workers)
	app.metrics.WatchQueue(app.worker.Waiting)

	app.Logger.Info("Model loaded",
		zap.String("path", app.modelPath),
		zap.String("label_set", set.Name),
		zap.Int("labels", set.Table.Len()),
		zap.Int("mapped", set.Mapping.Len()),
		zap.Stringer("normalization", prep.Normalization()),
		zap.Int("workers", cfg.Inference.Workers),
	)

	return nil
}

// NewModelStore builds the artifact store for cfg. An S3 client is only
// created when the model source points at S3. progress may be nil.
func NewModelStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, progress io.Writer) (*modelstore.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []modelstore.Option{modelstore.WithLogger(logger)}
	if progress != nil {
		opts = append(opts, modelstore.WithProgress(progress))
	}

	src, err := modelstore.ParseSource(cfg.Model.Source)
	if err != nil {
		return nil, err
	}

	if src.Type == modelstore.SourceTypeS3 {
		s3Opts := modelstore.S3Options{}
		if cfg.S3 != nil {
			s3Opts = modelstore.S3Options{
				Region:      cfg.S3.Region,
				AccessKey:   cfg.S3.AccessKey,
				SecretKey:   cfg.S3.SecretKey,
				EndpointURL: cfg.S3.EndpointUrl,
			}
		}

		client, err := modelstore.NewS3Client(ctx, s3Opts)
		if err != nil {
			return nil, err
		}

		logger.Debug("Using S3 model source",
			zap.String("bucket", src.Bucket),
			zap.String("endpoint", s3Opts.EndpointURL),
			zap.String("access_key", strutil.MaskString(s3Opts.AccessKey, 4, 2)),
		)
		opts = append(opts, modelstore.WithS3(client))
	}

	return modelstore.New(cfg.ModelsDir, opts...), nil
}

// Classify runs one upload through the worker pool, bounded by the
// configured inference timeout.
func (app *App) Classify(ctx context.Context, raw []byte) (*classifier.PredictionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, app.config.Inference.Timeout)
	defer cancel()

	return app.worker.Classify(ctx, raw)
}

func (app *App) Close() {
	app.cancelFunc()

	if app.worker != nil {
		app.worker.Stop()
	}

	if app.model != nil {
		if err := app.model.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close model", zap.Error(err))
		}
	}

	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Labels() labels.Set {
	return app.labels
}

func (app *App) Classifier() *classifier.Service {
	return app.classifier
}

func (app *App) Metrics() *metrics.Metrics {
	return app.metrics
}

func (app *App) ModelPath() string {
	return app.modelPath
}
