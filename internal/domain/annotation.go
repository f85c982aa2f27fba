package domain

import (
	"time"
)

// State is the verification state of an annotation.
type State string

const (
	// StateSuggested marks a machine-suggested annotation nobody touched yet
	StateSuggested State = "suggested"
	// StateModified marks an annotation edited or drawn by a reviewer
	StateModified State = "modified"
	// StateVerified marks an annotation accepted as correct
	StateVerified State = "verified"
	// StateRejected marks an annotation flagged as wrong
	StateRejected State = "rejected"
)

// States lists the closed state set in a stable order.
var States = []State{StateSuggested, StateModified, StateVerified, StateRejected}

// ValidState reports whether s is a member of the closed state set.
func ValidState(s State) bool {
	switch s {
	case StateSuggested, StateModified, StateVerified, StateRejected:
		return true
	}
	return false
}

// workflow is the allowed verification transitions. Transitions outside
// this table are still applied under the default policy; see the store
// package.
var workflow = map[State][]State{
	StateSuggested: {StateModified, StateVerified, StateRejected},
	StateModified:  {StateVerified, StateRejected, StateSuggested},
	StateVerified:  {StateModified, StateRejected},
	StateRejected:  {StateModified, StateVerified, StateSuggested},
}

// CanTransition reports whether the verification workflow allows moving
// from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range workflow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Point is a coordinate in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in image pixel space. Width and height
// are always positive for boxes that passed validation.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the box center.
func (r Rect) Center() Point { return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2} }

// Corners returns the four corners in clockwise order from top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{X: r.X, Y: r.Y},
		{X: r.Right(), Y: r.Y},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.X, Y: r.Bottom()},
	}
}

// Annotation represents a single labeled bounding box on one image,
// with an optional segmentation polygon.
type Annotation struct {
	ID         string         `json:"id"`
	ImageID    string         `json:"imageId"`
	BBox       Rect           `json:"bbox"`
	ClassName  string         `json:"className"`
	Confidence float64        `json:"confidence"`
	State      State          `json:"state"`
	Mask       []Point        `json:"segmentationMask,omitempty"`
	Selected   bool           `json:"selected"`
	CreatedAt  time.Time      `json:"createdAt"`
	ModifiedAt time.Time      `json:"modifiedAt"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Clone returns a deep copy. The store hands out clones so callers can
// never alias its internal records.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	c := *a
	if a.Mask != nil {
		c.Mask = make([]Point, len(a.Mask))
		copy(c.Mask, a.Mask)
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
