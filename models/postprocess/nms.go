// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"
	"sync"

	"github.com/nvr-ai/go-yolo/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap above which a weaker box is suppressed.
	NumWorkers   int     `json:"num_workers" yaml:"num_workers"`     // Goroutines running class groups; <= 1 runs inline.
}

// GreedyNMS performs greedy Non-Maximum Suppression over a single class group.
//
// Candidates are visited by descending score. Equal scores keep their input order.
// Every visited candidate that has not been suppressed is kept, and every later
// candidate whose IoU with it is not <= iouThreshold is suppressed. Overlap is
// measured with images.CalculateIoU (inclusive pixel edges).
//
// Arguments:
//   - boxes: Boxes of the group in absolute pixel (x, y, w, h) form.
//   - scores: Confidence of each box, index-aligned with boxes.
//   - iouThreshold: IoU above which overlapping boxes are suppressed.
//
// Returns:
//   - Indices into boxes of the kept candidates, in selection order.
func GreedyNMS(boxes []images.Box, scores []float32, iouThreshold float32) []int {
	n := len(boxes)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	suppressed := make([]bool, n)
	keep := make([]int, 0, n)

	for pos, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)

		for _, j := range order[pos+1:] {
			if suppressed[j] {
				continue
			}
			// Written as a negated <= so that a NaN overlap suppresses.
			if iou := images.CalculateIoU(boxes[i], boxes[j]); !(iou <= iouThreshold) {
				suppressed[j] = true
			}
		}
	}

	return keep
}

// PerClassNMS partitions candidates by class and runs GreedyNMS on each group.
//
// NMS never suppresses across classes. Groups are merged in ascending class index
// order and each group keeps its selection order, so the output is the same whether
// groups run inline or on the worker pool.
//
// Arguments:
//   - candidates: Candidates in absolute pixel coordinates.
//   - config: NMS configuration.
//
// Returns:
//   - The surviving candidates. If no candidates are provided, returns nil.
func PerClassNMS(candidates []Candidate, config *NMSConfig) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	groups := make(map[int][]int)
	classes := make([]int, 0)
	for i, c := range candidates {
		if _, ok := groups[c.Class]; !ok {
			classes = append(classes, c.Class)
		}
		groups[c.Class] = append(groups[c.Class], i)
	}
	sort.Ints(classes)

	kept := make([][]Candidate, len(classes))
	suppress := func(k int) {
		members := groups[classes[k]]
		boxes := make([]images.Box, len(members))
		scores := make([]float32, len(members))
		for m, idx := range members {
			boxes[m] = candidates[idx].Box
			scores[m] = candidates[idx].Score
		}

		keep := GreedyNMS(boxes, scores, config.IoUThreshold)
		out := make([]Candidate, len(keep))
		for m, idx := range keep {
			out[m] = candidates[members[idx]]
		}
		kept[k] = out
	}

	workers := min(config.NumWorkers, len(classes))
	if workers <= 1 {
		for k := range classes {
			suppress(k)
		}
	} else {
		// Worker pool over class groups. Each job writes only its own slot in kept.
		jobs := make(chan int, len(classes))
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := range jobs {
					suppress(k)
				}
			}()
		}
		for k := range classes {
			jobs <- k
		}
		close(jobs)
		wg.Wait()
	}

	total := 0
	for _, g := range kept {
		total += len(g)
	}
	filtered := make([]Candidate, 0, total)
	for _, g := range kept {
		filtered = append(filtered, g...)
	}

	return filtered
}
