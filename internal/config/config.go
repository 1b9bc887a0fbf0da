package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cozy-creator/cropguard/internal/imageutil"
	"github.com/cozy-creator/cropguard/internal/labels"
	"github.com/cozy-creator/cropguard/internal/utils/pathutil"
)

const EnvPrefix = "CROPGUARD"

type Config struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	Home        string `mapstructure:"home"`
	ModelsDir   string `mapstructure:"models_dir"`
	PublicDir   string `mapstructure:"public_dir"`
	ServiceName string `mapstructure:"service_name"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`

	Model     ModelConfig     `mapstructure:"model"`
	Labels    LabelsConfig    `mapstructure:"labels"`
	Image     ImageConfig     `mapstructure:"image"`
	Inference InferenceConfig `mapstructure:"inference"`
	S3        *S3Config       `mapstructure:"s3"`
}

type ModelConfig struct {
	// Source is a local path, file: path, s3://bucket/key or http(s) URL.
	Source         string `mapstructure:"source"`
	Checksum       string `mapstructure:"checksum"`
	RuntimeLibrary string `mapstructure:"runtime_library"`
	InputName      string `mapstructure:"input_name"`
	OutputName     string `mapstructure:"output_name"`
	Softmax        bool   `mapstructure:"softmax"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`
}

type LabelsConfig struct {
	Preset string `mapstructure:"preset"`
	// File, when set, replaces the preset entirely.
	File string `mapstructure:"file"`
}

type ImageConfig struct {
	Size          int    `mapstructure:"size"`
	Normalization string `mapstructure:"normalization"`
	Resample      string `mapstructure:"resample"`
	AutoOrient    bool   `mapstructure:"auto_orient"`
	// MaxPixels caps width*height of uploads. Negative disables the check.
	MaxPixels int64 `mapstructure:"max_pixels"`
}

type InferenceConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Region      string `mapstructure:"region_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointUrl string `mapstructure:"endpoint_url"`
}

// InitConfig reads .env files and config.yaml from the home directory into v
// and returns the validated result. Flags and CROPGUARD_* variables bound to
// v take precedence over the file.
func InitConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	home, err := getHome(v)
	if err != nil {
		return nil, err
	}
	v.SetDefault("models_dir", filepath.Join(home, "models"))

	for _, envFile := range []string{".env", filepath.Join(home, ".env")} {
		if err := loadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	configFile := v.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(home, "config.yaml")
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(v)
	if err != nil {
		return nil, err
	}
	cfg.Home = home

	return cfg, nil
}

// LoadConfig unmarshals v without touching the filesystem.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if cfg.Model.Source == "" {
		cfg.Model.Source = filepath.Join(cfg.ModelsDir, DefaultModelFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BindEnv makes every known key readable from CROPGUARD_* variables, with
// dots in nested keys replaced by underscores (model.source is
// CROPGUARD_MODEL_SOURCE).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB))
	}
	if c.Image.Size <= 0 {
		errs = append(errs, fmt.Errorf("image.size must be positive, got %d", c.Image.Size))
	}
	if _, err := imageutil.ParseNormalization(c.Image.Normalization); err != nil {
		errs = append(errs, err)
	}
	if c.Image.MaxPixels == 0 {
		errs = append(errs, errors.New("image.max_pixels must be positive, or negative to disable the limit"))
	}
	if _, err := imageutil.ParseResample(c.Image.Resample); err != nil {
		errs = append(errs, err)
	}
	if c.Inference.Workers < 1 {
		errs = append(errs, fmt.Errorf("inference.workers must be at least 1, got %d", c.Inference.Workers))
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("inference.timeout must be positive, got %s", c.Inference.Timeout))
	}
	if c.Model.IntraOpThreads < 0 {
		errs = append(errs, fmt.Errorf("model.intra_op_threads must not be negative, got %d", c.Model.IntraOpThreads))
	}
	if c.Labels.File == "" {
		if _, err := labels.Preset(c.Labels.Preset); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Normalization is only valid on a validated config.
func (c *Config) Normalization() imageutil.Normalization {
	n, _ := imageutil.ParseNormalization(c.Image.Normalization)
	return n
}

func (c *Config) expandPaths() error {
	paths := []*string{&c.Home, &c.ModelsDir, &c.PublicDir, &c.Labels.File, &c.Model.RuntimeLibrary}
	for _, p := range paths {
		expanded, err := pathutil.ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}

	if !strings.Contains(c.Model.Source, "://") && !strings.HasPrefix(c.Model.Source, "file:") {
		expanded, err := pathutil.ExpandPath(c.Model.Source)
		if err != nil {
			return fmt.Errorf("failed to expand model source: %w", err)
		}
		c.Model.Source = expanded
	}

	return nil
}

// Returns the home directory path.
// It attempts to retrieve it from the following sources in order:
// 1. The `home` flag or CROPGUARD_HOME through viper.
// 2. The default home directory.
func getHome(v *viper.Viper) (string, error) {
	home := v.GetString("home")
	if home == "" {
		home = DefaultHome
	}

	home, err := pathutil.ExpandPath(home)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHomeExpandFailed, err)
	}

	return home, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	return nil
}
