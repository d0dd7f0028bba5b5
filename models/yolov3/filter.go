package yolov3

import (
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Filter flattens decoded features into candidates and drops weak ones.
//
// For every cell and anchor the class score is objectness x class probability. The
// class is the argmax of those scores; on an exact tie the lowest class index wins.
// The candidate is kept when its class score is >= threshold. Candidates are emitted
// in row-major (H, W, A) order with boxes still normalised.
//
// Arguments:
//   - f: Decoded features of one scale.
//   - threshold: Minimum class score.
//
// Returns:
//   - []postprocess.Candidate: The kept candidates, possibly empty.
func Filter(f *Features, threshold float32) []postprocess.Candidate {
	boxes := f.Boxes.Data().([]float32)
	confidence := f.Confidence.Data().([]float32)
	probs := f.ClassProbs.Data().([]float32)
	categories := f.Categories()

	candidates := make([]postprocess.Candidate, 0)
	for k, conf := range confidence {
		scores := probs[k*categories : (k+1)*categories]

		class := 0
		best := conf * scores[0]
		for c := 1; c < categories; c++ {
			if s := conf * scores[c]; s > best {
				best = s
				class = c
			}
		}

		// NaN scores never pass.
		if !(best >= threshold) {
			continue
		}

		candidates = append(candidates, postprocess.Candidate{
			Box: images.Box{
				X: boxes[k*4+0],
				Y: boxes[k*4+1],
				W: boxes[k*4+2],
				H: boxes[k*4+3],
			},
			Score: best,
			Class: class,
		})
	}

	return candidates
}
