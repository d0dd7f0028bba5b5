package yolov3

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestDecode_Geometry(t *testing.T) {
	const (
		categories = 2
		gridH      = 2
		gridW      = 3
	)
	anchors := [AnchorsPerScale]Anchor{{10, 20}, {20, 40}, {30, 60}}
	resolution := Resolution{Height: 64, Width: 96}

	// Every logit is 0 (sigmoid 0.5) except tx of anchor 2 in cell (row 0, col 1).
	output := newOutput(categories, gridH, gridW, func(a, param, row, col int) float32 {
		if a == 2 && param == 0 && row == 0 && col == 1 {
			return logit(0.25)
		}
		return 0
	})

	f, err := Decode(output, anchors, resolution, categories)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{gridH, gridW, AnchorsPerScale, 4}, f.Boxes.Shape())
	assert.Equal(t, tensor.Shape{gridH, gridW, AnchorsPerScale, 1}, f.Confidence.Shape())
	assert.Equal(t, tensor.Shape{gridH, gridW, AnchorsPerScale, categories}, f.ClassProbs.Shape())
	assert.Equal(t, categories, f.Categories())

	boxes := f.Boxes.Data().([]float32)
	confidence := f.Confidence.Data().([]float32)
	probs := f.ClassProbs.Data().([]float32)

	t.Run("sigmoid offset with grid and anchor", func(t *testing.T) {
		row, col, a := 1, 2, 1
		k := (row*gridW+col)*AnchorsPerScale + a

		w := float32(0.5 * 20 / 96.0)
		h := float32(0.5 * 40 / 64.0)
		x := float32((0.5+2)/3.0) - w/2
		y := float32((0.5+1)/2.0) - h/2

		assert.InDelta(t, x, boxes[k*4+0], 1e-6)
		assert.InDelta(t, y, boxes[k*4+1], 1e-6)
		assert.InDelta(t, w, boxes[k*4+2], 1e-6)
		assert.InDelta(t, h, boxes[k*4+3], 1e-6)
		assert.Equal(t, float32(0.5), confidence[k])
		assert.Equal(t, []float32{0.5, 0.5}, probs[k*categories:(k+1)*categories])
	})

	t.Run("channel mapping", func(t *testing.T) {
		row, col, a := 0, 1, 2
		k := (row*gridW+col)*AnchorsPerScale + a

		w := float32(0.5 * 30 / 96.0)
		x := float32((0.25+1)/3.0) - w/2
		assert.InDelta(t, x, boxes[k*4+0], 1e-6)
	})
}

func TestDecode_ZeroAnchorPropagates(t *testing.T) {
	anchors := [AnchorsPerScale]Anchor{{0, 0}, {10, 10}, {10, 10}}
	f, err := Decode(newOutput(1, 2, 2, constant(0)), anchors, Resolution{Height: 64, Width: 64}, 1)
	require.NoError(t, err)

	boxes := f.Boxes.Data().([]float32)
	assert.Equal(t, float32(0), boxes[2])
	assert.Equal(t, float32(0), boxes[3])
	// The origin is the centre when the box has no size.
	assert.InDelta(t, 0.25, boxes[0], 1e-6)
	assert.InDelta(t, 0.25, boxes[1], 1e-6)
}

func TestDecode_DoesNotMutateInput(t *testing.T) {
	output := newOutput(3, 2, 4, func(a, param, row, col int) float32 {
		return float32(a*100 + param*10 + row*4 + col)
	})
	before := append([]float32(nil), output.Data().([]float32)...)

	_, err := Decode(output, [AnchorsPerScale]Anchor{{1, 1}, {2, 2}, {3, 3}}, Resolution{Height: 32, Width: 64}, 3)
	require.NoError(t, err)

	assert.Equal(t, before, output.Data().([]float32))
	assert.Equal(t, tensor.Shape{1, AnchorsPerScale * 8, 2, 4}, output.Shape())
}

func TestDecode_ShapeMismatch(t *testing.T) {
	anchors := [AnchorsPerScale]Anchor{{1, 1}, {1, 1}, {1, 1}}
	resolution := Resolution{Height: 32, Width: 32}

	tests := []struct {
		name   string
		output tensor.Tensor
	}{
		{"wrong channel count", newOutput(4, 2, 2, constant(0))},
		{"rank 3", tensor.New(tensor.WithShape(AnchorsPerScale*7, 2, 2), tensor.Of(tensor.Float32))},
		{"batch of two", tensor.New(tensor.WithShape(2, AnchorsPerScale*7, 2, 2), tensor.Of(tensor.Float32))},
		{"float64 dtype", tensor.New(tensor.WithShape(1, AnchorsPerScale*7, 2, 2), tensor.Of(tensor.Float64))},
		{"nil tensor", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.output, anchors, resolution, 2)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
		})
	}
}

func BenchmarkDecode608(b *testing.B) {
	config := DefaultConfig()
	grid := config.Grids()[2]
	output := newOutput(config.Categories, grid.Height, grid.Width, constant(-1))
	anchors := config.ScaleAnchors(2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(output, anchors, config.InputResolution, config.Categories); err != nil {
			b.Fatal(err)
		}
	}
}
