// Package images - Box geometry shared by decoding, suppression and evaluation.
package images

import "fmt"

// Rect is an axis-aligned box in corner form, in absolute pixel coordinates.
type Rect struct {
	X1 float32 `json:"x1" yaml:"x1"`
	Y1 float32 `json:"y1" yaml:"y1"`
	X2 float32 `json:"x2" yaml:"x2"`
	Y2 float32 `json:"y2" yaml:"y2"`
}

// CenterRect is an axis-aligned box in center form.
type CenterRect struct {
	CX float32 `json:"cx" yaml:"cx"`
	CY float32 `json:"cy" yaml:"cy"`
	W  float32 `json:"w" yaml:"w"`
	H  float32 `json:"h" yaml:"h"`
}

// CenterToCorners converts a center-form box to corner form.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - The box as (cx-w/2, cy-h/2, cx+w/2, cy+h/2).
func CenterToCorners(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// CornersToCenter is the inverse of CenterToCorners.
func CornersToCenter(r Rect) CenterRect {
	return CenterRect{
		CX: (r.X1 + r.X2) / 2,
		CY: (r.Y1 + r.Y2) / 2,
		W:  r.X2 - r.X1,
		H:  r.Y2 - r.Y1,
	}
}

// Corners returns the corner form of c.
func (c CenterRect) Corners() Rect {
	return CenterToCorners(c.CX, c.CY, c.W, c.H)
}

// Center returns the center form of r.
func (r Rect) Center() CenterRect {
	return CornersToCenter(r)
}

// Width of the box. Negative for inverted boxes.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height of the box. Negative for inverted boxes.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of r, or 0 if r is degenerate.
func (r Rect) Area() float32 {
	if !r.Valid() {
		return 0
	}
	return r.Width() * r.Height()
}

// Valid reports whether r has strictly positive width and height.
func (r Rect) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Offset returns a copy of r moved by (dx, dy).
func (r Rect) Offset(dx, dy float32) Rect {
	return Rect{
		X1: r.X1 + dx,
		Y1: r.Y1 + dy,
		X2: r.X2 + dx,
		Y2: r.Y2 + dy,
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU measures how much two corner-form boxes overlap, as the area of
// their intersection divided by the area of their union.
//
// The intersection is bounded by the larger of the two top-left corners and the
// smaller of the two bottom-right corners. If that region has no positive width
// or height the boxes do not overlap and the result is 0. The union follows from
// inclusion-exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// A degenerate box (zero or negative width or height) never overlaps anything,
// so any pairing with one returns 0 rather than NaN.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	if !r.Valid() || !o.Valid() {
		return 0
	}

	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	iou := interArea / unionArea
	// Rounding can push a self-comparison a hair past 1.
	if iou > 1 {
		return 1
	}
	return iou
}
