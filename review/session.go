package review

import (
	"sync"

	"github.com/lewtec/revisor/internal/domain"
	"github.com/lewtec/revisor/internal/geometry"
	"github.com/lewtec/revisor/internal/roi"
	"github.com/lewtec/revisor/internal/store"
)

// Session owns the engines for one image under review: an annotation
// store scoped to the image and its region-of-interest engine. Each
// session is independent, so several images can be reviewed without
// shared state. The engines themselves are single-threaded; mu
// serializes every store and ROI access, since HTTP handlers and the
// saver's timer goroutine reach the same session concurrently.
type Session struct {
	Image *domain.Image
	Store *store.Store
	ROI   *roi.Engine

	mu sync.Mutex
}

// NewSession wires a session for an image from the project config.
func NewSession(img *domain.Image, config *Config) *Session {
	s := store.New(store.Options{
		Classes:      config.ClassNames(),
		MinBoxWidth:  config.Review.MinBoxSize,
		MinBoxHeight: config.Review.MinBoxSize,
		HistoryLimit: config.Review.HistoryLimit,
	})
	s.SetImage(img.ID)
	engine := roi.NewEngine(roi.Options{MinPoints: config.Review.MinROIPoints})
	engine.SetImage(img.ID)
	return &Session{Image: img, Store: s, ROI: engine}
}

// Mapping computes the coordinate mapping for a display surface of the
// given size.
func (s *Session) Mapping(surfaceWidth, surfaceHeight float64) geometry.Mapping {
	return geometry.ComputeMapping(float64(s.Image.Width), float64(s.Image.Height), surfaceWidth, surfaceHeight)
}

// InScope reports whether an annotation's box intersects the active
// region of interest; with no region everything is in scope. The render
// layer uses this to dim out-of-scope annotations.
func (s *Session) InScope(a *domain.Annotation) bool {
	return s.ROI.CoarseIntersects(a.BBox)
}
