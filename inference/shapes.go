// Package inference - Engine-side adapters that feed network outputs to the postprocessor.
package inference

import (
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/models/yolov3"
)

// InputShape returns the (1, 3, H, W) input shape of the network.
func InputShape(config yolov3.Config) tensor.Shape {
	return tensor.Shape{1, 3, config.InputResolution.Height, config.InputResolution.Width}
}

// OutputShapes returns the (1, A*(5+C), H, W) shape of every output, in mask order.
//
// For the 608x608 COCO preset this is (1, 255, 19, 19), (1, 255, 38, 38) and
// (1, 255, 76, 76).
//
// Arguments:
//   - config: The postprocessing configuration of the model.
//
// Returns:
//   - []tensor.Shape: One shape per scale.
func OutputShapes(config yolov3.Config) []tensor.Shape {
	grids := config.Grids()
	shapes := make([]tensor.Shape, len(grids))
	for i, grid := range grids {
		shapes[i] = tensor.Shape{1, config.Channels(), grid.Height, grid.Width}
	}
	return shapes
}

func int64Shape(shape tensor.Shape) []int64 {
	out := make([]int64, len(shape))
	for i, d := range shape {
		out[i] = int64(d)
	}
	return out
}
