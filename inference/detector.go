package inference

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolov3"
)

// Runner produces the raw outputs of one forward pass.
type Runner interface {
	Run(blob []float32) ([]tensor.Tensor, error)
}

// Detector pairs an engine with the model that postprocesses its outputs.
type Detector struct {
	runner Runner
	model  model.Model
	logger *zap.Logger
}

// NewDetector creates a detector.
//
// Arguments:
//   - runner: The engine, usually a *Session.
//   - m: The model whose PostProcess consumes the runner's outputs.
//   - logger: Optional; nil discards logs.
//
// Returns:
//   - *Detector: The detector.
func NewDetector(runner Runner, m model.Model, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{runner: runner, model: m, logger: logger}
}

// Model returns the model of the detector.
func (d *Detector) Model() model.Model {
	return d.model
}

// Detect runs the engine on blob and postprocesses the outputs.
//
// Arguments:
//   - ctx: Checked before the engine runs and before postprocessing.
//   - blob: The preprocessed network input.
//   - size: The size of the original image.
//
// Returns:
//   - *postprocess.Detections: The detections in original image pixels.
//   - error: The context error, an engine error or a postprocessing error.
func (d *Detector) Detect(ctx context.Context, blob []float32, size images.Size) (*postprocess.Detections, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	outputs, err := d.runner.Run(blob)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	inferred := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detections, err := d.model.PostProcess(outputs, size)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("detected",
		zap.String("model", string(d.model.Options().Name)),
		zap.Duration("inference", inferred),
		zap.Duration("total", time.Since(start)),
		zap.Int("detections", detections.Len()))

	return detections, nil
}

// Open builds a detector backed by an onnxruntime session from a loaded configuration.
//
// Returns:
//   - *Detector: The detector.
//   - func() error: Releases the session.
//   - error: An error if the model or session can't be created.
func Open(cfg *config.AppConfig, precision Precision, logger *zap.Logger) (*Detector, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	name := cfg.Model.Name
	if name == "" {
		name = model.ModelNameYOLOv3
	}
	inputs, outputs := cfg.Model.Inputs, cfg.Model.Outputs
	if len(inputs) == 0 {
		inputs = yolov3.DefaultInputs
	}
	if len(outputs) == 0 {
		outputs = yolov3.DefaultOutputs
	}

	m, err := yolov3.NewModelWithConfig(model.Options{
		Name:    name,
		Family:  model.ModelFamilyYOLO,
		Path:    cfg.Model.Path,
		Inputs:  inputs,
		Outputs: outputs,
	}, cfg.Postprocess, yolov3.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	session, err := NewSession(SessionConfig{
		ModelPath:   cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		Inputs:      m.Options().Inputs,
		Outputs:     m.Options().Outputs,
		Precision:   precision,
	}, cfg.Postprocess)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("opened detector",
		zap.String("model", string(name)),
		zap.String("path", cfg.Model.Path),
		zap.Any("outputs", OutputShapes(cfg.Postprocess)))

	return NewDetector(session, m, logger), session.Close, nil
}
