// Package images - Image geometry utilities.
package images

import (
	"image"
	"math"
)

// Box is a bounding box in (x, y, w, h) form where (x, y) is the top-left corner.
//
// Coordinates are un-rounded float32 values. Depending on the pipeline stage they
// are either normalised to [0, 1] or absolute pixels of the original image.
type Box struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
	W float32 `json:"w" yaml:"w"`
	H float32 `json:"h" yaml:"h"`
}

// Size is the width and height of an image in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Area returns w*h.
func (b Box) Area() float32 {
	return b.W * b.H
}

// Scale multiplies x and w by sx, y and h by sy.
func (b Box) Scale(sx, sy float32) Box {
	return Box{X: b.X * sx, Y: b.Y * sy, W: b.W * sx, H: b.H * sy}
}

// Rect converts the box into an integral image.Rectangle for drawing.
//
// Each edge is rounded with floor(v+0.5) and clipped to the image bounds. This is the
// only place where rounding happens; the detection geometry itself is never rounded.
//
// Arguments:
//   - bounds: The size of the image the rectangle will be drawn on.
//
// Returns:
//   - image.Rectangle: The rounded and clipped rectangle.
func (b Box) Rect(bounds Size) image.Rectangle {
	left := max(0, round(b.X))
	top := max(0, round(b.Y))
	right := min(bounds.Width, round(b.X+b.W))
	bottom := min(bounds.Height, round(b.Y+b.H))
	return image.Rect(left, top, right, bottom)
}

func round(v float32) int {
	return int(math.Floor(float64(v) + 0.5))
}

// CalculateIoU measures the overlap of two boxes as Intersection over Union.
//
// See also:
//   - http://ronny.rest/tutorials/module/localization_001/iou
//
// **Inclusive pixel edges**
//
// The intersection rectangle is measured with inclusive pixel-edge semantics, the
// convention used by pixel-coordinate NMS formulations:
//
//	overlapW = max(0, min(x1+w1, x2+w2) - max(x1, x2) + 1)
//	overlapH = max(0, min(y1+h1, y2+h2) - max(y1, y2) + 1)
//
// while the box areas are plain w*h. The +1 is applied to the intersection only, so
// two identical boxes score slightly above 1.0 and two boxes whose edges are less than
// one pixel apart still overlap.
//
// **Union**
//
// The union follows the Principle of Inclusion-Exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: The IoU score.
//
// Example Usage:
// ```go
//
//	a := Box{X: 0, Y: 0, W: 10, H: 10}
//	b := Box{X: 20, Y: 20, W: 10, H: 10}
//
//	iou := CalculateIoU(a, b) // 0: the boxes are more than one pixel apart.
//
// ```
func CalculateIoU(r, o Box) float32 {
	ix1 := max(r.X, o.X)
	iy1 := max(r.Y, o.Y)
	ix2 := min(r.X+r.W, o.X+o.W)
	iy2 := min(r.Y+r.H, o.Y+o.H)

	interW := max(0, ix2-ix1+1)
	interH := max(0, iy2-iy1+1)
	inter := interW * interH

	return inter / (r.Area() + o.Area() - inter)
}
