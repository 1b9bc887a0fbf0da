package modelstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/cropguard/internal/model"
	"github.com/cozy-creator/cropguard/internal/utils/hashutil"
)

var artifact = []byte("onnx-bytes-for-mobilenet-v2")

func TestParseSource(t *testing.T) {
	tests := []struct {
		in       string
		typ      SourceType
		location string
		bucket   string
		key      string
		filename string
	}{
		{"/srv/models/plant.onnx", SourceTypeFile, "/srv/models/plant.onnx", "", "", "plant.onnx"},
		{"file:models/plant.onnx", SourceTypeFile, "models/plant.onnx", "", "", "plant.onnx"},
		{"file:///srv/plant.onnx", SourceTypeFile, "/srv/plant.onnx", "", "", "plant.onnx"},
		{"s3://cropguard-models/v2/plant.onnx", SourceTypeS3, "s3://cropguard-models/v2/plant.onnx", "cropguard-models", "v2/plant.onnx", "plant.onnx"},
		{"https://example.com/a/plant.onnx?sig=1", SourceTypeHTTP, "https://example.com/a/plant.onnx?sig=1", "", "", "plant.onnx"},
		{"http://example.com/", SourceTypeHTTP, "http://example.com/", "", "", "model.onnx"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			src, err := ParseSource(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, src.Type)
			assert.Equal(t, tt.location, src.Location)
			assert.Equal(t, tt.bucket, src.Bucket)
			assert.Equal(t, tt.key, src.Key)
			assert.Equal(t, tt.filename, src.Filename())
			assert.Equal(t, tt.in, src.String())
		})
	}
}

func TestParseSourceRejects(t *testing.T) {
	for _, in := range []string{"", "  ", "s3://bucket-only", "s3:///key", "ftp://host/model.onnx", "file:"} {
		_, err := ParseSource(in)
		assert.ErrorIs(t, err, ErrUnsupportedSource, in)
	}
}

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plant.onnx")
	require.NoError(t, os.WriteFile(path, artifact, 0o644))

	store := New(filepath.Join(dir, "models"))

	got, err := store.Resolve(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	got, err = store.Resolve(context.Background(), "file:"+path, hashutil.Blake3Hash(artifact))
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveLocalMissing(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.Resolve(context.Background(), filepath.Join(t.TempDir(), "missing.onnx"), "")
	assert.ErrorIs(t, err, model.ErrArtifactNotFound)
}

func TestResolveLocalDirectory(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.Resolve(context.Background(), t.TempDir(), "")
	assert.ErrorIs(t, err, model.ErrInvalidArtifact)
}

func TestResolveChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.onnx")
	require.NoError(t, os.WriteFile(path, artifact, 0o644))

	_, err := New(t.TempDir()).Resolve(context.Background(), path, hashutil.Blake3Hash([]byte("other")))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestResolveHTTPDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(artifact)
	}))
	defer srv.Close()

	modelsDir := filepath.Join(t.TempDir(), "models")
	var progress bytes.Buffer
	store := New(modelsDir, WithProgress(&progress), WithHTTPClient(srv.Client()))
	source := srv.URL + "/artifacts/plant.onnx"

	path, err := store.Resolve(context.Background(), source, hashutil.Blake3Hash(artifact))
	require.NoError(t, err)
	assert.Equal(t, modelsDir, filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "plant.onnx")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, artifact, data)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	again, err := store.Resolve(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestResolveHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	modelsDir := t.TempDir()
	_, err := New(modelsDir, WithHTTPClient(srv.Client())).Resolve(context.Background(), srv.URL+"/plant.onnx", "")
	assert.ErrorIs(t, err, model.ErrArtifactNotFound)

	entries, err := os.ReadDir(modelsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolveHTTPEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	modelsDir := t.TempDir()
	_, err := New(modelsDir, WithHTTPClient(srv.Client())).Resolve(context.Background(), srv.URL+"/plant.onnx", "")
	assert.ErrorIs(t, err, model.ErrInvalidArtifact)

	entries, err := os.ReadDir(modelsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type fakeS3 struct {
	objects map[string][]byte
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = params

	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestResolveS3(t *testing.T) {
	getter := &fakeS3{objects: map[string][]byte{"models/v2/plant.onnx": artifact}}
	store := New(t.TempDir(), WithS3(getter))

	path, err := store.Resolve(context.Background(), "s3://models/v2/plant.onnx", "")
	require.NoError(t, err)

	assert.Equal(t, "models", aws.ToString(getter.input.Bucket))
	assert.Equal(t, "v2/plant.onnx", aws.ToString(getter.input.Key))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, artifact, data)
}

func TestResolveS3Errors(t *testing.T) {
	_, err := New(t.TempDir()).Resolve(context.Background(), "s3://models/plant.onnx", "")
	assert.ErrorIs(t, err, ErrNoS3Client)

	store := New(t.TempDir(), WithS3(&fakeS3{}))
	_, err = store.Resolve(context.Background(), "s3://models/plant.onnx", "")
	assert.ErrorContains(t, err, "NoSuchKey")
}

func TestCachePathIsStablePerSource(t *testing.T) {
	store := New("/cache")
	a, _ := ParseSource("https://a.example/plant.onnx")
	b, _ := ParseSource("https://b.example/plant.onnx")

	assert.Equal(t, store.CachePath(a), store.CachePath(a))
	assert.NotEqual(t, store.CachePath(a), store.CachePath(b))
}
