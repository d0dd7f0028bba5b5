// Package models - registry for models.
package models

import (
	"fmt"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
)

// NewModel creates a new detection model instance based on the specified model name.
//
// This factory function is the single entry point for model creation, routing
// requests to the model-specific constructors.
//
// Arguments:
//   - args: Configuration parameters specifying the model name, location and thresholds.
//   - opts: Postprocessor options, for example yolov3.WithLogger.
//
// Returns:
//   - model.Model: A configured model instance implementing the Model interface.
//   - error: An error if the model name is unsupported or the configuration is invalid.
//
// Example:
//
//	m, err := models.NewModel(model.NewModelArgs{
//	    Name: model.ModelNameYOLOv3,
//	    Path: "/models/yolov3_608.onnx",
//	})
//	if err != nil {
//	    log.Fatalf("failed to create detection model: %v", err)
//	}
func NewModel(args model.NewModelArgs, opts ...yolov3.Option) (model.Model, error) {
	switch args.Name {
	case "", model.ModelNameYOLOv3, model.ModelNameYOLOv3Res416, model.ModelNameYOLOv3Tiny:
		m, err := yolov3.NewModel(args, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}

// Supported lists the model names NewModel accepts.
func Supported() []model.Name {
	return []model.Name{model.ModelNameYOLOv3, model.ModelNameYOLOv3Res416, model.ModelNameYOLOv3Tiny}
}
