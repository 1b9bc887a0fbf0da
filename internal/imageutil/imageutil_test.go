package imageutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// forgedPNG returns a PNG whose header claims width x height RGBA pixels but
// carries no image data.
func forgedPNG(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := func(kind string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		buf.WriteString(kind)
		buf.Write(data)
		_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], width)
	binary.BigEndian.PutUint32(ihdr[4:8], height)
	ihdr[8] = 8
	ihdr[9] = 6
	chunk("IHDR", ihdr)
	chunk("IDAT", nil)
	chunk("IEND", nil)
	return buf.Bytes()
}

func newPreprocessor(t *testing.T, n Normalization) *Preprocessor {
	t.Helper()
	p, err := NewPreprocessor(PreprocessOptions{Size: DefaultInputSize, Normalization: n})
	require.NoError(t, err)
	return p
}

func minMax(data []float32) (float32, float32) {
	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func TestDecodeRejectsText(t *testing.T) {
	_, contentType, err := Decode([]byte("this is not an image, just a plain text upload"), DecodeOptions{})
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, contentType, "text/plain")
}

func TestDecodeRejectsEmpty(t *testing.T) {
	_, _, err := Decode(nil, DecodeOptions{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	raw := forgedPNG(60000, 60000)

	_, contentType, err := Decode(raw, DecodeOptions{MaxPixels: DefaultMaxPixels})
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, "image/png", contentType)
	assert.Contains(t, err.Error(), "limit")
}

func TestCheckDimensions(t *testing.T) {
	raw := encodePNG(t, solidImage(40, 30, color.White))

	assert.NoError(t, CheckDimensions(raw, 1200))
	assert.Error(t, CheckDimensions(raw, 1199))
	assert.Error(t, CheckDimensions([]byte("plain text"), 1200))
}

func TestPrepareRejectsDecompressionBomb(t *testing.T) {
	p := newPreprocessor(t, NormalizeUnit)

	_, src, err := p.Prepare(forgedPNG(60000, 60000))
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, "image/png", src.ContentType)
}

func TestPrepareHonorsMaxPixels(t *testing.T) {
	p, err := NewPreprocessor(PreprocessOptions{Size: 8, Normalization: NormalizeUnit, MaxPixels: 100})
	require.NoError(t, err)

	_, _, err = p.Prepare(encodePNG(t, solidImage(10, 10, color.White)))
	assert.NoError(t, err)

	_, _, err = p.Prepare(encodePNG(t, solidImage(11, 10, color.White)))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeFormats(t *testing.T) {
	src := solidImage(8, 6, color.RGBA{10, 20, 30, 255})

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, src, &jpeg.Options{Quality: 95}))

	for name, raw := range map[string][]byte{
		"png":  encodePNG(t, src),
		"jpeg": jpg.Bytes(),
	} {
		img, contentType, err := Decode(raw, DecodeOptions{})
		require.NoError(t, err, name)
		assert.Equal(t, image.Pt(8, 6), img.Bounds().Size(), name)
		assert.Contains(t, contentType, name)
	}
}

func TestToRGBDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 128})
	img.SetNRGBA(1, 0, color.NRGBA{1, 2, 3, 255})

	out := ToRGB(img)

	assert.Equal(t, color.NRGBA{200, 100, 50, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{1, 2, 3, 255}, out.NRGBAAt(1, 0))
}

func TestToRGBExpandsGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 77})

	out := ToRGB(img)
	assert.Equal(t, color.NRGBA{77, 77, 77, 255}, out.NRGBAAt(0, 0))
}

func TestPrepareShape(t *testing.T) {
	p := newPreprocessor(t, NormalizeUnit)

	for _, size := range []image.Point{{640, 480}, {100, 300}, {224, 224}, {1, 1}} {
		raw := encodePNG(t, solidImage(size.X, size.Y, color.RGBA{0, 128, 255, 255}))

		tensor, src, err := p.Prepare(raw)
		require.NoError(t, err)

		assert.Equal(t, []int64{1, 224, 224, 3}, tensor.Shape)
		assert.Len(t, tensor.Data, 224*224*3)
		assert.NoError(t, tensor.Validate())
		assert.Equal(t, size, src.Size)
		assert.Equal(t, "image/png", src.ContentType)
	}
}

func TestPrepareGrayscaleHasThreeChannels(t *testing.T) {
	p := newPreprocessor(t, NormalizeUnit)

	gray := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range gray.Pix {
		gray.Pix[i] = 51
	}

	tensor, _, err := p.Prepare(encodePNG(t, gray))
	require.NoError(t, err)

	assert.Equal(t, int64(3), tensor.Shape[3])
	for _, v := range tensor.Data[:9] {
		assert.InDelta(t, 0.2, v, 1e-6)
	}
}

func TestPrepareChannelOrder(t *testing.T) {
	p := newPreprocessor(t, NormalizeUnit)

	tensor, _, err := p.Prepare(encodePNG(t, solidImage(30, 30, color.RGBA{255, 0, 51, 255})))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, tensor.Data[0], 1e-6)
	assert.InDelta(t, 0.0, tensor.Data[1], 1e-6)
	assert.InDelta(t, 0.2, tensor.Data[2], 1e-6)
}

func TestNormalizationRanges(t *testing.T) {
	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}

	cases := []struct {
		policy     Normalization
		blackValue float32
		whiteValue float32
	}{
		{NormalizeUnit, 0, 1},
		{NormalizeSymmetric, -1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			p := newPreprocessor(t, tc.policy)
			lo, hi := tc.policy.Range()

			for c, want := range map[color.RGBA]float32{black: tc.blackValue, white: tc.whiteValue} {
				tensor, _, err := p.Prepare(encodePNG(t, solidImage(64, 48, c)))
				require.NoError(t, err)

				min, max := minMax(tensor.Data)
				assert.InDelta(t, want, min, 1e-6)
				assert.InDelta(t, want, max, 1e-6)
				assert.GreaterOrEqual(t, min, lo)
				assert.LessOrEqual(t, max, hi)
			}
		})
	}
}

func TestNormalizationApply(t *testing.T) {
	data := []float32{0, 127.5, 255}
	require.NoError(t, NormalizeSymmetric.Apply(data))
	assert.InDeltaSlice(t, []float32{-1, 0, 1}, data, 1e-6)

	data = []float32{0, 51, 255}
	require.NoError(t, NormalizeUnit.Apply(data))
	assert.InDeltaSlice(t, []float32{0, 0.2, 1}, data, 1e-6)

	assert.ErrorIs(t, NormalizationUnset.Apply(data), ErrNormalizationUnset)
}

func TestParseNormalization(t *testing.T) {
	n, err := ParseNormalization("Unit")
	require.NoError(t, err)
	assert.Equal(t, NormalizeUnit, n)

	n, err = ParseNormalization("symmetric")
	require.NoError(t, err)
	assert.Equal(t, NormalizeSymmetric, n)

	_, err = ParseNormalization("")
	assert.ErrorIs(t, err, ErrNormalizationUnset)

	_, err = ParseNormalization("imagenet")
	assert.Error(t, err)
}

func TestNewPreprocessorRequiresNormalization(t *testing.T) {
	_, err := NewPreprocessor(PreprocessOptions{Size: 224})
	assert.ErrorIs(t, err, ErrNormalizationUnset)

	_, err = NewPreprocessor(PreprocessOptions{Size: 0, Normalization: NormalizeUnit})
	assert.Error(t, err)

	_, err = NewPreprocessor(PreprocessOptions{Size: 224, Normalization: NormalizeUnit, Resample: "sinc"})
	assert.Error(t, err)
}

func TestParseResample(t *testing.T) {
	for _, name := range []string{ResampleBicubic, ResampleBilinear, ResampleNearest, ResampleLanczos, " BICUBIC "} {
		_, err := ParseResample(name)
		assert.NoError(t, err, name)
	}
}

func TestTensorValidate(t *testing.T) {
	tensor := &Tensor{Shape: []int64{1, 2, 2, 3}, Data: make([]float32, 12)}
	assert.NoError(t, tensor.Validate())

	tensor.Data = tensor.Data[:11]
	assert.ErrorIs(t, tensor.Validate(), ErrShapeMismatch)
}

func TestTensorMatchesShape(t *testing.T) {
	tensor := &Tensor{Shape: []int64{1, 224, 224, 3}}

	assert.True(t, tensor.MatchesShape([]int64{-1, 224, 224, 3}))
	assert.True(t, tensor.MatchesShape([]int64{1, 224, 224, 3}))
	assert.False(t, tensor.MatchesShape([]int64{1, 3, 224, 224}))
	assert.False(t, tensor.MatchesShape([]int64{1, 224, 224}))
}
