// Package yolov3 - decodes and suppresses YOLOv3 multi-scale detector outputs.
package yolov3

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// AnchorsPerScale is the number of anchors (A) predicted by every grid cell.
	AnchorsPerScale = 3
	// BoxParams is the number of non-class channels per anchor: x, y, w, h, objectness.
	BoxParams = 5
	// MaxStride is the downsampling factor of the coarsest output scale.
	MaxStride = 32
)

// Anchor is a reference box shape (width, height) in network input pixels.
type Anchor [2]float32

// Mask selects the anchors of one output scale.
type Mask [AnchorsPerScale]int

// Resolution is the spatial input resolution of the network.
type Resolution struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

// Config holds everything fixed at construction time.
type Config struct {
	// Anchors are all anchor shapes of the model.
	Anchors []Anchor `json:"anchors" yaml:"anchors"`
	// Masks assign anchors to scales, in the same order as the output tensors.
	Masks []Mask `json:"masks" yaml:"masks"`
	// ObjectnessThreshold is the minimum objectness x class probability kept by the filter.
	ObjectnessThreshold float32 `json:"objectness_threshold" yaml:"objectness_threshold"`
	// NMSThreshold is the IoU above which a weaker box of the same class is suppressed.
	NMSThreshold float32 `json:"nms_iou_threshold" yaml:"nms_iou_threshold"`
	// InputResolution is the resolution the network was fed with.
	InputResolution Resolution `json:"input_resolution" yaml:"input_resolution"`
	// Categories is the number of object classes (C).
	Categories int `json:"categories" yaml:"categories"`
	// Workers bounds the goroutines used for scales and class groups. 0 or 1 runs inline.
	Workers int `json:"workers" yaml:"workers"`
}

// COCOAnchors are the anchors YOLOv3 was trained with on COCO.
var COCOAnchors = []Anchor{
	{10, 13}, {16, 30}, {33, 23},
	{30, 61}, {62, 45}, {59, 119},
	{116, 90}, {156, 198}, {373, 326},
}

// TinyCOCOAnchors are the anchors of YOLOv3-tiny trained on COCO.
var TinyCOCOAnchors = []Anchor{
	{10, 14}, {23, 27}, {37, 58},
	{81, 82}, {135, 169}, {344, 319},
}

// DefaultConfig returns the YOLOv3-608 COCO configuration.
//
// Returns:
//   - Config: 9 anchors in 3 masks, objectness 0.6, NMS 0.7, 608x608 input, 80 classes.
func DefaultConfig() Config {
	return Config608()
}

// Config608 returns the YOLOv3 COCO configuration for a 608x608 input.
func Config608() Config {
	return Config{
		Anchors:             append([]Anchor(nil), COCOAnchors...),
		Masks:               []Mask{{6, 7, 8}, {3, 4, 5}, {0, 1, 2}},
		ObjectnessThreshold: 0.6,
		NMSThreshold:        0.7,
		InputResolution:     Resolution{Height: 608, Width: 608},
		Categories:          80,
	}
}

// Config416 returns the YOLOv3 COCO configuration for a 416x416 input.
func Config416() Config {
	c := Config608()
	c.InputResolution = Resolution{Height: 416, Width: 416}
	return c
}

// TinyConfig returns the YOLOv3-tiny COCO configuration. The second mask reuses
// anchors 1-3, as in the darknet model definition.
func TinyConfig() Config {
	return Config{
		Anchors:             append([]Anchor(nil), TinyCOCOAnchors...),
		Masks:               []Mask{{3, 4, 5}, {1, 2, 3}},
		ObjectnessThreshold: 0.6,
		NMSThreshold:        0.7,
		InputResolution:     Resolution{Height: 416, Width: 416},
		Categories:          80,
	}
}

// Channels returns the channel count A*(5+C) expected in every output tensor.
func (c Config) Channels() int {
	return AnchorsPerScale * (BoxParams + c.Categories)
}

// Grids returns the expected output grid of every scale. Scale i is downsampled by
// MaxStride >> i, so a 608 input yields 19, 38 and 76.
func (c Config) Grids() []Resolution {
	grids := make([]Resolution, len(c.Masks))
	for i := range grids {
		stride := MaxStride >> i
		grids[i] = Resolution{
			Height: c.InputResolution.Height / stride,
			Width:  c.InputResolution.Width / stride,
		}
	}
	return grids
}

// ScaleAnchors returns the anchors selected by the mask of the given scale.
func (c Config) ScaleAnchors(scale int) [AnchorsPerScale]Anchor {
	var out [AnchorsPerScale]Anchor
	for a, idx := range c.Masks[scale] {
		out[a] = c.Anchors[idx]
	}
	return out
}

// Validate checks the configuration. Thresholds are never clamped.
//
// Returns:
//   - error: ErrInvalidConfiguration wrapped with the offending value, or nil.
func (c Config) Validate() error {
	if !inUnitInterval(c.ObjectnessThreshold) {
		return errors.Wrapf(ErrInvalidConfiguration, "objectness threshold %v outside (0, 1)", c.ObjectnessThreshold)
	}
	if !inUnitInterval(c.NMSThreshold) {
		return errors.Wrapf(ErrInvalidConfiguration, "nms threshold %v outside (0, 1)", c.NMSThreshold)
	}
	if c.Categories <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "category count %d must be positive", c.Categories)
	}
	if c.InputResolution.Height <= 0 || c.InputResolution.Width <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "input resolution %dx%d must be positive",
			c.InputResolution.Width, c.InputResolution.Height)
	}
	if len(c.Anchors) == 0 {
		return errors.Wrap(ErrInvalidConfiguration, "no anchors configured")
	}
	for i, a := range c.Anchors {
		if a[0] < 0 || a[1] < 0 || math.IsNaN(float64(a[0])) || math.IsNaN(float64(a[1])) {
			return errors.Wrapf(ErrInvalidConfiguration, "anchor %d (%v, %v) must not be negative", i, a[0], a[1])
		}
	}
	if len(c.Masks) == 0 {
		return errors.Wrap(ErrInvalidConfiguration, "no masks configured")
	}
	for s, m := range c.Masks {
		for _, idx := range m {
			if idx < 0 || idx >= len(c.Anchors) {
				return errors.Wrapf(ErrInvalidConfiguration, "mask %d references anchor %d of %d", s, idx, len(c.Anchors))
			}
		}
	}
	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "workers %d must not be negative", c.Workers)
	}
	return nil
}

func inUnitInterval(v float32) bool {
	return v > 0 && v < 1
}
