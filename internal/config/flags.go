package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags onto nested config keys. Flags not
// listed here use their name with hyphens turned into underscores.
var flagKeys = map[string]string{
	"model-source":      "model.source",
	"model-checksum":    "model.checksum",
	"runtime-library":   "model.runtime_library",
	"input-name":        "model.input_name",
	"output-name":       "model.output_name",
	"softmax":           "model.softmax",
	"intra-op-threads":  "model.intra_op_threads",
	"labels-preset":     "labels.preset",
	"labels-file":       "labels.file",
	"image-size":        "image.size",
	"normalization":     "image.normalization",
	"resample":          "image.resample",
	"auto-orient":       "image.auto_orient",
	"max-pixels":        "image.max_pixels",
	"workers":           "inference.workers",
	"inference-timeout": "inference.timeout",
	"s3-region-name":    "s3.region_name",
	"s3-access-key":     "s3.access_key",
	"s3-secret-key":     "s3.secret_key",
	"s3-endpoint-url":   "s3.endpoint_url",
}

// FlagKey returns the config key a flag is bound to.
func FlagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// BindFlags binds every flag in flags to its config key in v.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "help" {
			return
		}
		err = v.BindPFlag(FlagKey(f.Name), f)
	})
	return err
}
