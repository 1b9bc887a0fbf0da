package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"

	"github.com/cozy-creator/cropguard/internal/model"
	"github.com/cozy-creator/cropguard/internal/utils/hashutil"
	"github.com/cozy-creator/cropguard/internal/utils/pathutil"
)

var (
	ErrChecksumMismatch = errors.New("model checksum mismatch")
	ErrNoS3Client       = errors.New("s3 source configured without an s3 client")
)

// Store turns a configured model source into a local file path, downloading
// remote artifacts into the models directory once.
type Store struct {
	modelsDir  string
	s3         ObjectGetter
	httpClient *http.Client
	progress   io.Writer
	logger     *zap.Logger
}

type Option func(s *Store)

func WithS3(getter ObjectGetter) Option {
	return func(s *Store) {
		s.s3 = getter
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.httpClient = client
	}
}

// WithProgress renders a progress bar for downloads on w.
func WithProgress(w io.Writer) Option {
	return func(s *Store) {
		s.progress = w
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(modelsDir string, opts ...Option) *Store {
	s := &Store{
		modelsDir: modelsDir,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   60 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       60 * time.Second,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Resolve returns the local path of the artifact named by source. When
// checksum is not empty the file's blake3 digest must match it.
func (s *Store) Resolve(ctx context.Context, source, checksum string) (string, error) {
	src, err := ParseSource(source)
	if err != nil {
		return "", err
	}

	var localPath string
	if src.IsRemote() {
		localPath, err = s.fetch(ctx, src)
	} else {
		localPath, err = s.local(src)
	}
	if err != nil {
		return "", err
	}

	if checksum != "" {
		if err := Verify(localPath, checksum); err != nil {
			return "", err
		}
	}

	return localPath, nil
}

// CachePath is where a remote source is stored once downloaded.
func (s *Store) CachePath(src *Source) string {
	digest := hashutil.Blake3Hash([]byte(src.Original))
	return filepath.Join(s.modelsDir, fmt.Sprintf("%s-%s", digest[:16], src.Filename()))
}

func (s *Store) local(src *Source) (string, error) {
	localPath, err := pathutil.ExpandPath(src.Location)
	if err != nil {
		return "", fmt.Errorf("failed to expand model path: %w", err)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", model.ErrArtifactNotFound, localPath)
		}
		return "", fmt.Errorf("failed to stat model: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", model.ErrInvalidArtifact, localPath)
	}

	return localPath, nil
}

func (s *Store) fetch(ctx context.Context, src *Source) (string, error) {
	destPath := s.CachePath(src)
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		s.logger.Debug("Model already cached", zap.String("source", src.Original), zap.String("path", destPath))
		return destPath, nil
	}

	if err := os.MkdirAll(s.modelsDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create models directory: %w", err)
	}

	s.logger.Info("Downloading model",
		zap.String("source", src.Original),
		zap.String("path", destPath),
	)

	body, size, err := s.open(ctx, src)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := s.save(body, size, destPath); err != nil {
		return "", err
	}

	s.logger.Info("Model downloaded", zap.String("path", destPath))
	return destPath, nil
}

func (s *Store) open(ctx context.Context, src *Source) (io.ReadCloser, int64, error) {
	switch src.Type {
	case SourceTypeHTTP:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, 0, fmt.Errorf("request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusNotFound {
				return nil, 0, fmt.Errorf("%w: %s", model.ErrArtifactNotFound, src.Location)
			}
			return nil, 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
		}
		return resp.Body, resp.ContentLength, nil
	case SourceTypeS3:
		if s.s3 == nil {
			return nil, 0, ErrNoS3Client
		}

		out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(src.Bucket),
			Key:    aws.String(src.Key),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get s3 object: %w", err)
		}
		return out.Body, aws.ToInt64(out.ContentLength), nil
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedSource, src.Type)
	}
}

// save writes body to a temporary file next to destPath and renames it into
// place, so an interrupted download never leaves a partial artifact behind.
func (s *Store) save(body io.Reader, size int64, destPath string) (err error) {
	tmpPath := destPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if s.progress != nil {
		progress = mpb.New(
			mpb.WithOutput(s.progress),
			mpb.WithWidth(60),
			mpb.WithRefreshRate(180*time.Millisecond),
		)
		bar = progress.AddBar(size,
			mpb.PrependDecorators(
				decor.Name(filepath.Base(destPath), decor.WC{W: 40, C: decor.DidentRight}),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.EwmaETA(decor.ET_STYLE_GO, 90),
				decor.Name(" ] "),
				decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
			),
		)
		body = bar.ProxyReader(body)
	}

	written, err := io.Copy(f, body)
	if bar != nil {
		if err != nil {
			bar.Abort(false)
		} else {
			bar.SetTotal(written, true)
		}
		progress.Wait()
	}
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if size > 0 && written != size {
		return fmt.Errorf("download size mismatch: expected %d, got %d", size, written)
	}
	if written == 0 {
		return fmt.Errorf("%w: downloaded file is empty", model.ErrInvalidArtifact)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}

	return nil
}

// Verify compares the blake3 digest of the file at path with checksum (hex).
func Verify(path, checksum string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	digest, err := hashutil.Blake3HashReader(f)
	if err != nil {
		return fmt.Errorf("failed to hash model: %w", err)
	}

	if digest != checksum {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, checksum, digest)
	}
	return nil
}
