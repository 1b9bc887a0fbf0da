package imageutil

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/transform"
)

const (
	ResampleBicubic  = "bicubic"
	ResampleBilinear = "bilinear"
	ResampleNearest  = "nearest"
	ResampleLanczos  = "lanczos"
)

var resampleFilters = map[string]transform.ResampleFilter{
	ResampleBicubic:  transform.CatmullRom,
	ResampleBilinear: transform.Linear,
	ResampleNearest:  transform.NearestNeighbor,
	ResampleLanczos:  transform.Lanczos,
}

func ParseResample(name string) (transform.ResampleFilter, error) {
	filter, ok := resampleFilters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return transform.ResampleFilter{}, fmt.Errorf("unsupported resample filter: %q", name)
	}
	return filter, nil
}

// Resize scales img to exactly width×height, ignoring aspect ratio.
func Resize(img image.Image, width, height int, filter transform.ResampleFilter) *image.RGBA {
	return transform.Resize(img, width, height, filter)
}
