// Package config - Loads the detector configuration from yaml, environment and presets.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
)

// EnvPrefix is the prefix of environment overrides. A double underscore separates
// nesting levels, so CFG_POSTPROCESS__NMS_IOU_THRESHOLD sets postprocess.nms_iou_threshold.
const EnvPrefix = "CFG_"

// ModelConfig locates the network.
type ModelConfig struct {
	Name model.Name `yaml:"name"`
	Path string     `yaml:"path"`

	// LibraryPath is the onnxruntime shared library.
	LibraryPath string `yaml:"library_path"`
	// Inputs and Outputs name the network tensors; outputs are in mask order.
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}

// AppConfig is the complete configuration.
type AppConfig struct {
	Debug       bool          `yaml:"debug"`
	Model       ModelConfig   `yaml:"model"`
	Postprocess yolov3.Config `yaml:"postprocess"`
}

// Preset returns the postprocessing defaults for a model name.
//
// Returns:
//   - yolov3.Config: The preset, DefaultConfig for an empty name.
//   - error: If the name is unknown.
func Preset(name model.Name) (yolov3.Config, error) {
	switch name {
	case "", model.ModelNameYOLOv3:
		return yolov3.DefaultConfig(), nil
	case model.ModelNameYOLOv3Res416:
		return yolov3.Config416(), nil
	case model.ModelNameYOLOv3Tiny:
		return yolov3.TinyConfig(), nil
	default:
		return yolov3.Config{}, errors.Errorf("no preset for model %q", name)
	}
}

// Load reads the configuration.
//
// Sources are layered: the preset of model.name, then the yaml file at filePath, then
// CFG_ environment variables. A missing or empty filePath leaves only the preset and
// the environment.
//
// Arguments:
//   - filePath: Path of the yaml file.
//
// Returns:
//   - *AppConfig: The validated configuration.
//   - error: If a source can't be read or the result is invalid.
func Load(filePath string) (*AppConfig, error) {
	overrides := koanf.New(".")

	if filePath != "" {
		if _, err := os.Stat(filePath); err == nil {
			if err := overrides.Load(file.Provider(filePath), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "can't load %s", filePath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "can't stat %s", filePath)
		}
	}

	if err := overrides.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, errors.Wrap(err, "can't load environment")
	}

	name := model.Name(overrides.String("model.name"))
	preset, err := Preset(name)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(name, preset), "."), nil); err != nil {
		return nil, errors.Wrap(err, "can't load defaults")
	}
	if err := k.Merge(overrides); err != nil {
		return nil, errors.Wrap(err, "can't merge overrides")
	}

	var cfg AppConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, errors.Wrap(err, "can't decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the postprocessing section.
func (c *AppConfig) Validate() error {
	return c.Postprocess.Validate()
}

func defaults(name model.Name, preset yolov3.Config) map[string]any {
	if name == "" {
		name = model.ModelNameYOLOv3
	}
	return map[string]any{
		"debug":                               false,
		"model.name":                          string(name),
		"postprocess.anchors":                 preset.Anchors,
		"postprocess.masks":                   preset.Masks,
		"postprocess.objectness_threshold":    preset.ObjectnessThreshold,
		"postprocess.nms_iou_threshold":       preset.NMSThreshold,
		"postprocess.input_resolution.height": preset.InputResolution.Height,
		"postprocess.input_resolution.width":  preset.InputResolution.Width,
		"postprocess.categories":              preset.Categories,
		"postprocess.workers":                 preset.Workers,
	}
}

func envValue(s string, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.Contains(v, ",") {
		return key, strings.Split(strings.TrimSpace(v), ",")
	}
	return key, v
}
