package yolov3

import (
	"fmt"

	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Tensor names of the ONNX export of darknet YOLOv3.
var (
	DefaultInputs  = []string{"000_net"}
	DefaultOutputs = []string{"082_convolutional", "094_convolutional", "106_convolutional"}
)

// YOLOv3 is the instance of a YOLOv3 model.
type YOLOv3 struct {
	options       model.Options
	postprocessor *Postprocessor
}

// Options returns the options for the YOLOv3 model.
//
// Returns:
//   - The options for the YOLOv3 model.
func (m *YOLOv3) Options() model.Options {
	return m.options
}

// Postprocessor returns the postprocessor of the model.
func (m *YOLOv3) Postprocessor() *Postprocessor {
	return m.postprocessor
}

// PostProcess postprocesses the output tensors of one forward pass.
//
// Arguments:
//   - outputs: One tensor per scale, in mask order.
//   - size: The original image size.
//
// Returns:
//   - The detections and an error if the outputs or size are rejected.
func (m *YOLOv3) PostProcess(outputs []tensor.Tensor, size images.Size) (*postprocess.Detections, error) {
	return m.postprocessor.Process(outputs, size)
}

// NewModel creates a new model.
//
// The configuration preset is picked from args.Name; non-zero thresholds in args
// override the preset.
//
// Arguments:
//   - args: The arguments for creating a new model.
//   - opts: Postprocessor options.
//
// Returns:
//   - The model.
func NewModel(args model.NewModelArgs, opts ...Option) (*YOLOv3, error) {
	var config Config
	inputs, outputs := args.Inputs, args.Outputs

	switch args.Name {
	case model.ModelNameYOLOv3, model.ModelNameYOLOv3Res416, "":
		config = DefaultConfig()
		if args.Name == model.ModelNameYOLOv3Res416 {
			config = Config416()
		}
		if len(inputs) == 0 {
			inputs = DefaultInputs
		}
		if len(outputs) == 0 {
			outputs = DefaultOutputs
		}
	case model.ModelNameYOLOv3Tiny:
		config = TinyConfig()
	default:
		return nil, fmt.Errorf("NewModel does not support model %q", args.Name)
	}

	if len(outputs) > 0 && len(outputs) != len(config.Masks) {
		return nil, fmt.Errorf("NewModel requires %d outputs, got %d", len(config.Masks), len(outputs))
	}

	if args.ObjectnessThreshold != 0 {
		config.ObjectnessThreshold = args.ObjectnessThreshold
	}
	if args.NMS != nil {
		if args.NMS.IoUThreshold != 0 {
			config.NMSThreshold = args.NMS.IoUThreshold
		}
		config.Workers = args.NMS.NumWorkers
	}

	return NewModelWithConfig(model.Options{
		Name:    nameOrDefault(args.Name),
		Family:  model.ModelFamilyYOLO,
		Path:    args.Path,
		Inputs:  inputs,
		Outputs: outputs,
	}, config, opts...)
}

// NewModelWithConfig creates a model from an explicit configuration, for example
// one loaded by the config package.
func NewModelWithConfig(options model.Options, config Config, opts ...Option) (*YOLOv3, error) {
	p, err := NewPostprocessor(config, opts...)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("created model",
		zap.String("name", string(options.Name)),
		zap.Int("scales", len(config.Masks)),
		zap.Int("categories", config.Categories))

	return &YOLOv3{options: options, postprocessor: p}, nil
}

func nameOrDefault(name model.Name) model.Name {
	if name == "" {
		return model.ModelNameYOLOv3
	}
	return name
}
