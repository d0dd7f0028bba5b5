// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"image"

	"github.com/nvr-ai/go-yolo/images"
)

// Candidate represents a single detection hypothesis.
type Candidate struct {
	// The bounding box of the candidate.
	Box images.Box
	// The confidence score of the candidate (objectness x class probability).
	Score float32
	// The predicted class index of the candidate.
	Class int
}

// Detections is the final output of a postprocessing pass.
//
// The three slices are index-aligned and always have the same length. A pass that
// finds nothing returns a non-nil Detections whose slices are all nil; see Empty.
type Detections struct {
	Boxes   []images.Box `json:"boxes"`
	Classes []int        `json:"classes"`
	Scores  []float32    `json:"scores"`
}

// Labelled is a detection with its class name resolved.
type Labelled struct {
	Box   images.Box `json:"box"`
	Class int        `json:"class"`
	Label string     `json:"label"`
	Score float32    `json:"score"`
}

// NoDetections returns the explicit empty result.
func NoDetections() *Detections {
	return &Detections{}
}

// Assemble flattens candidates into index-aligned arrays.
//
// Arguments:
//   - candidates: The surviving candidates, in output order.
//
// Returns:
//   - *Detections: The assembled result, or NoDetections if candidates is empty.
func Assemble(candidates []Candidate) *Detections {
	if len(candidates) == 0 {
		return NoDetections()
	}

	d := &Detections{
		Boxes:   make([]images.Box, len(candidates)),
		Classes: make([]int, len(candidates)),
		Scores:  make([]float32, len(candidates)),
	}
	for i, c := range candidates {
		d.Boxes[i] = c.Box
		d.Classes[i] = c.Class
		d.Scores[i] = c.Score
	}
	return d
}

// Len returns the number of detections.
func (d *Detections) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Scores)
}

// Empty reports whether the result holds no detections.
func (d *Detections) Empty() bool {
	return d.Len() == 0
}

// Candidates returns the detections as a slice of Candidate values.
func (d *Detections) Candidates() []Candidate {
	out := make([]Candidate, d.Len())
	for i := range out {
		out[i] = Candidate{Box: d.Boxes[i], Score: d.Scores[i], Class: d.Classes[i]}
	}
	return out
}

// Labelled resolves class names through names. Classes without a name are labelled
// with an empty string.
//
// Arguments:
//   - names: Class names indexed by class.
//
// Returns:
//   - []Labelled: One entry per detection, in result order.
func (d *Detections) Labelled(names []string) []Labelled {
	out := make([]Labelled, d.Len())
	for i := range out {
		out[i] = Labelled{Box: d.Boxes[i], Class: d.Classes[i], Score: d.Scores[i]}
		if c := d.Classes[i]; c >= 0 && c < len(names) {
			out[i].Label = names[c]
		}
	}
	return out
}

// Rects returns the draw-ready rectangles of every detection clipped to bounds.
func (d *Detections) Rects(bounds images.Size) []image.Rectangle {
	out := make([]image.Rectangle, d.Len())
	for i := range out {
		out[i] = d.Boxes[i].Rect(bounds)
	}
	return out
}
