package domain

import (
	"time"
)

// ROI is a polygonal region of interest restricting which annotations
// are considered in scope. At most one ROI is active per image.
type ROI struct {
	ID         string    `json:"id"`
	ImageID    string    `json:"imageId"`
	Polygon    []Point   `json:"polygon"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Clone returns a deep copy.
func (r *ROI) Clone() *ROI {
	if r == nil {
		return nil
	}
	c := *r
	c.Polygon = make([]Point, len(r.Polygon))
	copy(c.Polygon, r.Polygon)
	return &c
}

// ROIStats summarizes the active region for display.
type ROIStats struct {
	PointCount int     `json:"pointCount"`
	Bounds     Rect    `json:"bounds"`
	Area       float64 `json:"area"`
	Perimeter  float64 `json:"perimeter"`
}
