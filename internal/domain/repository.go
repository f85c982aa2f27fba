package domain

import (
	"context"
)

// ReviewStats provides statistics about persisted annotations.
type ReviewStats struct {
	Images      int64
	Annotations int64
	ByState     map[State]int64
}

// AnnotationRepository defines the interface for annotation persistence.
// Saves replace the whole list for an image; retry policy belongs to the
// caller, not the repository.
type AnnotationRepository interface {
	// ReplaceForImage atomically replaces all annotations for an image
	ReplaceForImage(ctx context.Context, imageID string, annotations []*Annotation) error

	// GetForImage retrieves all annotations for an image in saved order
	GetForImage(ctx context.Context, imageID string) ([]*Annotation, error)

	// DeleteForImage removes all annotations for an image
	DeleteForImage(ctx context.Context, imageID string) error

	// SaveROI stores the active ROI for its image, replacing any prior one
	SaveROI(ctx context.Context, roi *ROI) error

	// GetROI retrieves the ROI for an image, or nil if none is stored
	GetROI(ctx context.Context, imageID string) (*ROI, error)

	// ClearROI removes the stored ROI for an image
	ClearROI(ctx context.Context, imageID string) error

	// Stats returns overall counts of persisted work
	Stats(ctx context.Context) (*ReviewStats, error)
}
