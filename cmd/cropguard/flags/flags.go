// Package flags declares the flags shared by commands that load the model.
package flags

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/labels"
)

func AddModelFlags(flags *pflag.FlagSet) {
	flags.String("model-source", "", "Model artifact: local path, file:<path>, s3://bucket/key or http(s) URL (default <home>/models/plant_disease_mobilenetv2.onnx)")
	flags.String("model-checksum", "", "Expected blake3 hex digest of the model artifact")
	flags.String("runtime-library", "", "Path to the onnxruntime shared library")
	flags.String("input-name", "", "Model input name (discovered when empty)")
	flags.String("output-name", "", "Model output name (discovered when empty)")
	flags.Bool("softmax", false, "Apply softmax to the model output")
	flags.Int("intra-op-threads", 0, "ONNX Runtime intra-op threads (0 uses the runtime default)")

	flags.String("labels-preset", labels.PresetPlantVillage15, "Built-in label set: "+strings.Join(labels.PresetNames(), ", "))
	flags.String("labels-file", "", "YAML or JSON label set, replaces the preset")

	flags.Int("image-size", imageutil.DefaultInputSize, "Model input width and height")
	flags.String("normalization", imageutil.NormalizeUnit.String(), "Pixel normalization: unit (x/255) or symmetric (x/127.5-1)")
	flags.String("resample", imageutil.ResampleBicubic, "Resize filter: bicubic, bilinear, nearest or lanczos")
	flags.Bool("auto-orient", false, "Apply EXIF orientation before resizing")
	flags.Int64("max-pixels", imageutil.DefaultMaxPixels, "Reject uploads whose width*height exceeds this (negative disables)")
}

func AddS3Flags(flags *pflag.FlagSet) {
	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL for S3-compatible stores")
}
