package imageutil

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
)

const DefaultInputSize = 224

type PreprocessOptions struct {
	Size          int
	Resample      string
	Normalization Normalization
	AutoOrient    bool
	// MaxPixels bounds decoded images. Zero means DefaultMaxPixels; a negative
	// value disables the check.
	MaxPixels int64
}

// Source describes the decoded upload before resizing.
type Source struct {
	ContentType string
	Size        image.Point
}

// Preprocessor turns raw upload bytes into the model's input tensor. It holds
// no mutable state and is safe for concurrent use.
type Preprocessor struct {
	size          int
	filter        transform.ResampleFilter
	normalization Normalization
	autoOrient    bool
	maxPixels     int64
}

func NewPreprocessor(opts PreprocessOptions) (*Preprocessor, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("invalid input size: %d", opts.Size)
	}

	if opts.Normalization != NormalizeUnit && opts.Normalization != NormalizeSymmetric {
		return nil, ErrNormalizationUnset
	}

	resample := opts.Resample
	if resample == "" {
		resample = ResampleBicubic
	}
	filter, err := ParseResample(resample)
	if err != nil {
		return nil, err
	}

	maxPixels := opts.MaxPixels
	switch {
	case maxPixels == 0:
		maxPixels = DefaultMaxPixels
	case maxPixels < 0:
		maxPixels = 0
	}

	return &Preprocessor{
		size:          opts.Size,
		filter:        filter,
		normalization: opts.Normalization,
		autoOrient:    opts.AutoOrient,
		maxPixels:     maxPixels,
	}, nil
}

func (p *Preprocessor) InputShape() []int64 {
	return []int64{1, int64(p.size), int64(p.size), Channels}
}

func (p *Preprocessor) Normalization() Normalization {
	return p.normalization
}

// Prepare decodes raw and returns the normalized (1, size, size, 3) tensor.
func (p *Preprocessor) Prepare(raw []byte) (*Tensor, Source, error) {
	img, contentType, err := Decode(raw, DecodeOptions{AutoOrient: p.autoOrient, MaxPixels: p.maxPixels})
	if err != nil {
		return nil, Source{ContentType: contentType}, err
	}

	src := Source{
		ContentType: contentType,
		Size:        img.Bounds().Size(),
	}

	tensor, err := p.PrepareImage(img)
	if err != nil {
		return nil, src, err
	}
	return tensor, src, nil
}

func (p *Preprocessor) PrepareImage(img image.Image) (*Tensor, error) {
	resized := Resize(ToRGB(img), p.size, p.size, p.filter)
	tensor := FromImage(resized)

	if !tensor.MatchesShape(p.InputShape()) {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrShapeMismatch, tensor.Shape, p.InputShape())
	}

	if err := p.normalization.Apply(tensor.Data); err != nil {
		return nil, err
	}
	return tensor, nil
}
