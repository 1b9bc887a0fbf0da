package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/labels"
)

const (
	DefaultHome        = "~/.cropguard"
	DefaultServiceName = "CropGuard AI Model Server"
	DefaultModelFile   = "plant_disease_mobilenetv2.onnx"
)

var ErrHomeExpandFailed = errors.New("failed to expand home directory")

// SetDefaults registers every key, which also lets AutomaticEnv feed
// Unmarshal for keys that are absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("environment", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("home", DefaultHome)
	v.SetDefault("models_dir", "")
	v.SetDefault("public_dir", "")
	v.SetDefault("service_name", DefaultServiceName)
	v.SetDefault("max_upload_mb", 10)

	v.SetDefault("model.source", "")
	v.SetDefault("model.checksum", "")
	v.SetDefault("model.runtime_library", "")
	v.SetDefault("model.input_name", "")
	v.SetDefault("model.output_name", "")
	v.SetDefault("model.softmax", false)
	v.SetDefault("model.intra_op_threads", 0)

	v.SetDefault("labels.preset", labels.PresetPlantVillage15)
	v.SetDefault("labels.file", "")

	v.SetDefault("image.size", imageutil.DefaultInputSize)
	v.SetDefault("image.normalization", imageutil.NormalizeUnit.String())
	v.SetDefault("image.resample", imageutil.ResampleBicubic)
	v.SetDefault("image.auto_orient", false)
	v.SetDefault("image.max_pixels", imageutil.DefaultMaxPixels)

	v.SetDefault("inference.workers", 4)
	v.SetDefault("inference.timeout", 30*time.Second)

	v.SetDefault("s3.region_name", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.endpoint_url", "")
}
