package yolov3

import (
	"math"
	"math/rand"

	"gorgonia.org/tensor"
)

// logit is the inverse of sigmoid.
func logit(p float64) float32 {
	return float32(math.Log(p / (1 - p)))
}

// newOutput builds a (1, A*(5+C), H, W) tensor. fill receives the anchor, the
// parameter index within the anchor (0-4 box, 5+ classes) and the cell.
func newOutput(categories, gridH, gridW int, fill func(a, param, row, col int) float32) *tensor.Dense {
	params := BoxParams + categories
	data := make([]float32, AnchorsPerScale*params*gridH*gridW)
	for a := 0; a < AnchorsPerScale; a++ {
		for p := 0; p < params; p++ {
			ch := a*params + p
			for row := 0; row < gridH; row++ {
				for col := 0; col < gridW; col++ {
					data[(ch*gridH+row)*gridW+col] = fill(a, p, row, col)
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(1, AnchorsPerScale*params, gridH, gridW), tensor.WithBacking(data))
}

// constant fills every logit with v.
func constant(v float32) func(a, param, row, col int) float32 {
	return func(int, int, int, int) float32 { return v }
}

// randomOutputs builds one random tensor per configured scale.
func randomOutputs(rng *rand.Rand, config Config) []tensor.Tensor {
	outputs := make([]tensor.Tensor, 0, len(config.Masks))
	for _, grid := range config.Grids() {
		outputs = append(outputs, newOutput(config.Categories, grid.Height, grid.Width,
			func(int, int, int, int) float32 { return float32(rng.NormFloat64() * 3) }))
	}
	return outputs
}

// smallConfig is the COCO layout on a 64x64 input, which yields grids 2, 4 and 8.
func smallConfig(categories int) Config {
	c := DefaultConfig()
	c.InputResolution = Resolution{Height: 64, Width: 64}
	c.Categories = categories
	return c
}
