// Package model - Definitions shared by all detection models.
package model

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv3 is the name of the three-scale YOLOv3 model.
	ModelNameYOLOv3 Name = "yolov3"
	// ModelNameYOLOv3Res416 is YOLOv3 exported for a 416x416 input.
	ModelNameYOLOv3Res416 Name = "yolov3-416"
	// ModelNameYOLOv3Tiny is the name of the two-scale YOLOv3-tiny model.
	ModelNameYOLOv3Tiny Name = "yolov3-tiny"
)

// Options describes a model instance.
type Options struct {
	Name    Name     `json:"name" yaml:"name"`
	Family  Family   `json:"family" yaml:"family"`
	Path    string   `json:"path" yaml:"path"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	Outputs []string `json:"outputs" yaml:"outputs"`
}

// Model is a detection model whose raw outputs can be postprocessed.
type Model interface {
	Options() Options
	PostProcess(outputs []tensor.Tensor, size images.Size) (*postprocess.Detections, error)
}

// NewModelArgs is the arguments for creating a new model.
//
// Zero thresholds keep the model's defaults.
type NewModelArgs struct {
	Name                Name                   `json:"name" yaml:"name"`
	Path                string                 `json:"path" yaml:"path"`
	Family              Family                 `json:"family" yaml:"family"`
	ObjectnessThreshold float32                `json:"objectness_threshold" yaml:"objectness_threshold"`
	NMS                 *postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Inputs              []string               `json:"inputs" yaml:"inputs"`
	Outputs             []string               `json:"outputs" yaml:"outputs"`
}
