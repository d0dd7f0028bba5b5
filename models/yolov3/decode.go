package yolov3

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Features are the decoded fields of one output scale, laid out as (H, W, A, .).
type Features struct {
	// Boxes is (H, W, A, 4) holding x, y, w, h normalised to [0, 1], with (x, y)
	// the top-left corner of the box.
	Boxes *tensor.Dense
	// Confidence is (H, W, A, 1) holding the objectness of every anchor.
	Confidence *tensor.Dense
	// ClassProbs is (H, W, A, C) holding independent per-class probabilities.
	ClassProbs *tensor.Dense
}

// Categories returns the class count C of the decoded scale.
func (f *Features) Categories() int {
	return f.ClassProbs.Shape()[3]
}

// Decode converts one raw output tensor into box geometry, objectness and class
// probabilities.
//
// The tensor is cloned, brought from (1, A*(5+C), H, W) to (H, W, A, 5+C) and passed
// through the logistic sigmoid in one vectorised pass. Then per cell and anchor:
//
//	x, y = (σ(tx) + col) / W, (σ(ty) + row) / H
//	w, h = σ(tw) * anchorW / inputW, σ(th) * anchorH / inputH
//	x, y = x - w/2, y - h/2
//
// Zero anchors are not special-cased and yield zero-sized boxes.
//
// Arguments:
//   - output: One scale of the network output. It is not modified.
//   - anchors: The anchors of this scale's mask.
//   - resolution: The network input resolution.
//   - categories: The class count C.
//
// Returns:
//   - *Features: The decoded fields.
//   - error: ErrShapeMismatch if the tensor does not match categories.
func Decode(output tensor.Tensor, anchors [AnchorsPerScale]Anchor, resolution Resolution, categories int) (*Features, error) {
	dense, err := checkOutput(output, categories)
	if err != nil {
		return nil, err
	}

	shape := dense.Shape()
	gridH, gridW := shape[2], shape[3]
	params := BoxParams + categories

	t := dense.Clone().(*tensor.Dense)
	if err := t.Reshape(AnchorsPerScale, params, gridH, gridW); err != nil {
		return nil, errors.Wrap(err, "can't reshape output to anchor-major layout")
	}
	if err := t.T(2, 3, 0, 1); err != nil {
		return nil, errors.Wrap(err, "can't transpose output to channel-last layout")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "can't materialise transposed output")
	}
	if _, err := t.Apply(sigmoid, tensor.UseUnsafe()); err != nil {
		return nil, errors.Wrap(err, "can't apply sigmoid to output")
	}
	if err := t.Reshape(gridH*gridW, AnchorsPerScale, params); err != nil {
		return nil, errors.Wrap(err, "can't reshape output to cells")
	}
	cells, err := native.Tensor3F32(t)
	if err != nil {
		return nil, errors.Wrap(err, "can't prepare tensor3_f32 from output")
	}

	n := gridH * gridW * AnchorsPerScale
	boxes := make([]float32, n*4)
	confidence := make([]float32, n)
	probs := make([]float32, n*categories)

	inW := float32(resolution.Width)
	inH := float32(resolution.Height)

	for row := 0; row < gridH; row++ {
		for col := 0; col < gridW; col++ {
			cell := cells[row*gridW+col]
			for a := 0; a < AnchorsPerScale; a++ {
				v := cell[a]
				k := (row*gridW+col)*AnchorsPerScale + a

				w := v[2] * anchors[a][0] / inW
				h := v[3] * anchors[a][1] / inH
				x := (v[0] + float32(col)) / float32(gridW)
				y := (v[1] + float32(row)) / float32(gridH)

				boxes[k*4+0] = x - w/2
				boxes[k*4+1] = y - h/2
				boxes[k*4+2] = w
				boxes[k*4+3] = h
				confidence[k] = v[4]
				copy(probs[k*categories:(k+1)*categories], v[BoxParams:])
			}
		}
	}

	return &Features{
		Boxes:      tensor.New(tensor.WithShape(gridH, gridW, AnchorsPerScale, 4), tensor.WithBacking(boxes)),
		Confidence: tensor.New(tensor.WithShape(gridH, gridW, AnchorsPerScale, 1), tensor.WithBacking(confidence)),
		ClassProbs: tensor.New(tensor.WithShape(gridH, gridW, AnchorsPerScale, categories), tensor.WithBacking(probs)),
	}, nil
}

// checkOutput verifies that output is a float32 (1, A*(5+C), H, W) dense tensor.
func checkOutput(output tensor.Tensor, categories int) (*tensor.Dense, error) {
	dense, ok := output.(*tensor.Dense)
	if !ok || dense == nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "unsupported tensor type %T", output)
	}
	if dense.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(ErrShapeMismatch, "dtype %v, want float32", dense.Dtype())
	}

	shape := dense.Shape()
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrShapeMismatch, "shape %v is not rank 4", shape)
	}
	if shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "batch size %d, want 1", shape[0])
	}
	if want := AnchorsPerScale * (BoxParams + categories); shape[1] != want {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d channels, want %d", shape[1], want)
	}
	if shape[2] <= 0 || shape[3] <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "empty grid %dx%d", shape[3], shape[2])
	}
	return dense, nil
}

func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}
