package yolo

import "fmt"

// Anchor is a prior box shape in grid-cell units.
type Anchor struct {
	W float32 `json:"w" yaml:"w"`
	H float32 `json:"h" yaml:"h"`
}

func (a Anchor) String() string {
	return fmt.Sprintf("%gx%g", a.W, a.H)
}

// AnchorSet is an ordered, immutable list of anchors. The index of an anchor
// is the index of its encoding within a cell's prediction vector.
type AnchorSet struct {
	anchors []Anchor
}

// DefaultAnchors are the five tiny-YOLOv2 priors, in grid-cell units.
var DefaultAnchors = []Anchor{
	{W: 0.57273, H: 0.677385},
	{W: 1.87446, H: 2.06253},
	{W: 3.33843, H: 5.47434},
	{W: 7.88282, H: 3.52778},
	{W: 9.77052, H: 9.16828},
}

// NewAnchorSet copies anchors into a new set.
func NewAnchorSet(anchors ...Anchor) AnchorSet {
	s := AnchorSet{anchors: make([]Anchor, len(anchors))}
	copy(s.anchors, anchors)
	return s
}

// NewAnchorSetFromPairs builds a set from [w, h] pairs, the layout used in
// configuration files.
func NewAnchorSetFromPairs(pairs [][2]float32) AnchorSet {
	anchors := make([]Anchor, len(pairs))
	for i, p := range pairs {
		anchors[i] = Anchor{W: p[0], H: p[1]}
	}
	return AnchorSet{anchors: anchors}
}

// Len returns the number of anchors, which is also the number of boxes
// predicted per grid cell.
func (s AnchorSet) Len() int {
	return len(s.anchors)
}

// At returns the anchor at index i.
func (s AnchorSet) At(i int) Anchor {
	return s.anchors[i]
}

// Anchors returns a copy of the anchors.
func (s AnchorSet) Anchors() []Anchor {
	out := make([]Anchor, len(s.anchors))
	copy(out, s.anchors)
	return out
}

// Pairs returns the anchors as [w, h] pairs.
func (s AnchorSet) Pairs() [][2]float32 {
	out := make([][2]float32, len(s.anchors))
	for i, a := range s.anchors {
		out[i] = [2]float32{a.W, a.H}
	}
	return out
}
