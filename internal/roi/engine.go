// Package roi manages the region-of-interest polygon for the image
// under review and answers membership queries for the render layer.
package roi

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lewtec/revisor/internal/domain"
	"github.com/lewtec/revisor/internal/geometry"
)

// ErrInsufficientPoints is returned when a polygon has fewer distinct
// vertices than the configured minimum.
var ErrInsufficientPoints = errors.New("roi: polygon needs more points")

// Options configures an Engine.
type Options struct {
	// MinPoints is the minimum vertex count for a valid region.
	// Defaults to 3.
	MinPoints int
	// VertexTolerance merges consecutive vertices closer than this.
	VertexTolerance float64
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// Event is delivered on every region mutation.
type Event struct {
	ImageID string
	ROI     *domain.ROI // snapshot, nil after a clear
}

// Engine holds at most one active region per image under review.
// Like the store, it runs on a single logical thread of control.
type Engine struct {
	opts    Options
	imageID string
	active  *domain.ROI
	subs    []func(Event)
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	if opts.MinPoints < 3 {
		opts.MinPoints = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Subscribe registers a change listener, run synchronously on mutation.
func (e *Engine) Subscribe(fn func(Event)) {
	e.subs = append(e.subs, fn)
}

func (e *Engine) notify() {
	var snap *domain.ROI
	if e.active != nil {
		snap = e.active.Clone()
	}
	for _, fn := range e.subs {
		fn(Event{ImageID: e.imageID, ROI: snap})
	}
}

// SetImage switches the image under review, dropping any region that
// belonged to the previous image.
func (e *Engine) SetImage(imageID string) {
	if e.imageID == imageID {
		return
	}
	e.imageID = imageID
	if e.active != nil {
		e.active = nil
		e.notify()
	}
}

// Create installs a new active region from a finished polygon draw,
// replacing any prior one. Consecutive coincident vertices are merged
// before the minimum vertex count is checked.
func (e *Engine) Create(points []domain.Point, imageID string) (*domain.ROI, error) {
	polygon := geometry.DedupePolygon(points, e.opts.VertexTolerance)
	if len(polygon) < e.opts.MinPoints {
		return nil, ErrInsufficientPoints
	}
	now := e.opts.Now()
	e.imageID = imageID
	e.active = &domain.ROI{
		ID:         uuid.NewString(),
		ImageID:    imageID,
		Polygon:    polygon,
		Active:     true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	e.notify()
	return e.active.Clone(), nil
}

// Load installs a previously persisted region without notifying
// subscribers. A nil region is ignored.
func (e *Engine) Load(r *domain.ROI) {
	if r == nil {
		return
	}
	e.imageID = r.ImageID
	e.active = r.Clone()
}

// Update replaces the active region's polygon wholesale. It only
// succeeds when roiID matches the active region and the new polygon is
// valid; otherwise it reports failure without touching anything.
func (e *Engine) Update(roiID string, points []domain.Point) bool {
	if e.active == nil || e.active.ID != roiID {
		return false
	}
	polygon := geometry.DedupePolygon(points, e.opts.VertexTolerance)
	if len(polygon) < e.opts.MinPoints {
		return false
	}
	e.active.Polygon = polygon
	e.active.ModifiedAt = e.opts.Now()
	e.notify()
	return true
}

// Clear removes the active region. Returns false when there is none.
func (e *Engine) Clear() bool {
	if e.active == nil {
		return false
	}
	e.active = nil
	e.notify()
	return true
}

// Active returns a snapshot of the active region.
func (e *Engine) Active() (*domain.ROI, bool) {
	if e.active == nil {
		return nil, false
	}
	return e.active.Clone(), true
}

// ContainsPoint reports whether a point is in scope. With no active
// region everything is in scope.
func (e *Engine) ContainsPoint(p domain.Point) bool {
	if e.active == nil {
		return true
	}
	return geometry.PointInPolygon(p, e.active.Polygon)
}

// CoarseIntersects reports whether a box overlaps the active region.
// This is the corner/vertex approximation: true when any box corner is
// inside the polygon or any polygon vertex is inside the box. A region
// edge can slice through a box without either holding, so a thin
// overlap may be missed; exact polygon clipping is deliberately out of
// scope.
func (e *Engine) CoarseIntersects(box domain.Rect) bool {
	if e.active == nil {
		return true
	}
	for _, corner := range box.Corners() {
		if geometry.PointInPolygon(corner, e.active.Polygon) {
			return true
		}
	}
	for _, v := range e.active.Polygon {
		if geometry.PointInRect(v, box) {
			return true
		}
	}
	return false
}

// Stats summarizes the active region. The second return is false when
// no region is active.
func (e *Engine) Stats() (domain.ROIStats, bool) {
	if e.active == nil {
		return domain.ROIStats{}, false
	}
	p := e.active.Polygon
	return domain.ROIStats{
		PointCount: len(p),
		Bounds:     geometry.PolygonBounds(p),
		Area:       geometry.PolygonArea(p),
		Perimeter:  geometry.PolygonPerimeter(p),
	}, true
}
