package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps width*height of an upload before any pixel buffer is
// allocated, so a forged header cannot exhaust memory.
const DefaultMaxPixels = 89_478_485

var (
	ErrDecode        = errors.New("image decode failed")
	ErrShapeMismatch = errors.New("tensor shape mismatch")
)

type DecodeOptions struct {
	AutoOrient bool
	// MaxPixels rejects images larger than width*height. Zero disables the check.
	MaxPixels int64
}

// Decode turns uploaded bytes into an image. The content type is sniffed
// for logging only; whether the bytes are an image is decided by the decoders.
func Decode(raw []byte, opts DecodeOptions) (image.Image, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	contentType := mimetype.Detect(raw).String()

	if opts.MaxPixels > 0 {
		if err := CheckDimensions(raw, opts.MaxPixels); err != nil {
			return nil, contentType, fmt.Errorf("%w (%s): %v", ErrDecode, contentType, err)
		}
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(opts.AutoOrient))
	if err != nil {
		return nil, contentType, fmt.Errorf("%w (%s): %v", ErrDecode, contentType, err)
	}

	return img, contentType, nil
}

// CheckDimensions reads only the image header and rejects images whose pixel
// count exceeds maxPixels.
func CheckDimensions(raw []byte, maxPixels int64) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return fmt.Errorf("image is %dx%d (%d pixels), limit is %d", cfg.Width, cfg.Height, pixels, maxPixels)
	}
	return nil
}

// ToRGB forces the image into three opaque color channels. Alpha is dropped
// rather than composited, grayscale and paletted images are expanded.
func ToRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}
