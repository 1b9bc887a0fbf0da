package modelstore

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var ErrUnsupportedSource = errors.New("unsupported model source")

type SourceType string

const (
	SourceTypeFile SourceType = "file"
	SourceTypeS3   SourceType = "s3"
	SourceTypeHTTP SourceType = "http"
)

// Source says where the model artifact lives. Bucket and Key are only set
// for S3 sources.
type Source struct {
	Type     SourceType
	Location string
	Bucket   string
	Key      string
	Original string
}

// ParseSource accepts "file:<path>", a bare path, "s3://bucket/key" or an
// http(s) URL.
func ParseSource(source string) (*Source, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}

	src := &Source{Original: source}

	switch {
	case strings.HasPrefix(source, "s3://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("%w: s3 source needs a bucket and key: %s", ErrUnsupportedSource, source)
		}
		src.Type = SourceTypeS3
		src.Bucket = u.Host
		src.Key = key
		src.Location = source
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		u, err := url.Parse(source)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
		}
		src.Type = SourceTypeHTTP
		src.Location = source
	case strings.HasPrefix(source, "file:"):
		src.Type = SourceTypeFile
		src.Location = strings.TrimPrefix(strings.TrimPrefix(source, "file:"), "//")
		if src.Location == "" {
			return nil, fmt.Errorf("%w: empty file path", ErrUnsupportedSource)
		}
	case strings.Contains(source, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	default:
		src.Type = SourceTypeFile
		src.Location = source
	}

	return src, nil
}

func (s *Source) IsRemote() bool {
	return s.Type != SourceTypeFile
}

// Filename is the base name of the artifact, used for the cached copy.
func (s *Source) Filename() string {
	var name string
	switch s.Type {
	case SourceTypeS3:
		name = path.Base(s.Key)
	case SourceTypeHTTP:
		if u, err := url.Parse(s.Location); err == nil {
			name = path.Base(u.Path)
		}
	default:
		name = path.Base(s.Location)
	}

	if name == "" || name == "." || name == "/" {
		return "model.onnx"
	}
	return name
}

func (s *Source) String() string {
	return s.Original
}
