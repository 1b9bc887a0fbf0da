package imageutil

import (
	"fmt"
	"image"
)

const Channels = 3

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape []int64
	Data  []float32
}

func (t *Tensor) Size() int64 {
	if len(t.Shape) == 0 {
		return 0
	}

	size := int64(1)
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

func (t *Tensor) Validate() error {
	if size := t.Size(); size != int64(len(t.Data)) {
		return fmt.Errorf("%w: shape %v wants %d values, have %d", ErrShapeMismatch, t.Shape, size, len(t.Data))
	}
	return nil
}

// MatchesShape compares against an expected shape where -1 means any size.
func (t *Tensor) MatchesShape(expected []int64) bool {
	if len(expected) != len(t.Shape) {
		return false
	}
	for i, dim := range expected {
		if dim >= 0 && dim != t.Shape[i] {
			return false
		}
	}
	return true
}

// FromImage lays out the RGB samples of img as a (1, H, W, 3) batch with raw
// [0,255] intensities. Alpha is ignored.
func FromImage(img *image.RGBA) *Tensor {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	data := make([]float32, 0, width*height*Channels)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			data = append(data,
				float32(img.Pix[off]),
				float32(img.Pix[off+1]),
				float32(img.Pix[off+2]),
			)
		}
	}

	return &Tensor{
		Shape: []int64{1, int64(height), int64(width), Channels},
		Data:  data,
	}
}
