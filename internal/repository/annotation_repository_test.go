package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lewtec/revisor/internal/domain"
)

func setupTestRepository(t *testing.T) (*AnnotationRepository, context.Context) {
	t.Helper()
	return NewAnnotationRepository(SetupTestDB(t)), context.Background()
}

func sampleAnnotations() []*domain.Annotation {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return []*domain.Annotation{
		{
			ID:         "a1",
			ImageID:    "img-1",
			BBox:       domain.Rect{X: 10, Y: 20, Width: 30, Height: 40},
			ClassName:  "Car",
			Confidence: 0.92,
			State:      domain.StateVerified,
			Mask:       []domain.Point{{X: 10, Y: 20}, {X: 40, Y: 20}, {X: 25, Y: 60}},
			Metadata:   map[string]any{"source": "detector-v3"},
			CreatedAt:  created,
			ModifiedAt: created.Add(2 * time.Minute),
		},
		{
			ID:         "a2",
			ImageID:    "img-1",
			BBox:       domain.Rect{X: 100, Y: 120, Width: 50, Height: 60},
			ClassName:  "Truck",
			Confidence: 0.55,
			State:      domain.StateSuggested,
			CreatedAt:  created,
			ModifiedAt: created,
		},
	}
}

func TestAnnotationRepository_ReplaceAndGet(t *testing.T) {
	repo, ctx := setupTestRepository(t)

	t.Run("round-trips a full annotation list", func(t *testing.T) {
		if err := repo.ReplaceForImage(ctx, "img-1", sampleAnnotations()); err != nil {
			t.Fatalf("ReplaceForImage() error = %v", err)
		}

		got, err := repo.GetForImage(ctx, "img-1")
		if err != nil {
			t.Fatalf("GetForImage() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d annotations, want 2", len(got))
		}
		a := got[0]
		if a.ID != "a1" || a.ClassName != "Car" || a.State != domain.StateVerified {
			t.Errorf("first annotation = %+v", a)
		}
		if a.BBox != (domain.Rect{X: 10, Y: 20, Width: 30, Height: 40}) {
			t.Errorf("BBox = %+v", a.BBox)
		}
		if a.Confidence != 0.92 {
			t.Errorf("Confidence = %v, want 0.92", a.Confidence)
		}
		if len(a.Mask) != 3 || a.Mask[2] != (domain.Point{X: 25, Y: 60}) {
			t.Errorf("Mask = %+v", a.Mask)
		}
		if a.Metadata["source"] != "detector-v3" {
			t.Errorf("Metadata = %+v", a.Metadata)
		}
		if !a.CreatedAt.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)) {
			t.Errorf("CreatedAt = %v", a.CreatedAt)
		}
		if got[1].Mask != nil {
			t.Errorf("second annotation mask = %+v, want none", got[1].Mask)
		}
	})

	t.Run("replace is wholesale", func(t *testing.T) {
		one := sampleAnnotations()[:1]
		if err := repo.ReplaceForImage(ctx, "img-1", one); err != nil {
			t.Fatalf("ReplaceForImage() error = %v", err)
		}
		got, _ := repo.GetForImage(ctx, "img-1")
		if len(got) != 1 {
			t.Errorf("got %d annotations after replace, want 1", len(got))
		}
	})

	t.Run("preserves list order across save and load", func(t *testing.T) {
		anns := sampleAnnotations()
		anns[0], anns[1] = anns[1], anns[0]
		repo.ReplaceForImage(ctx, "img-2", anns)
		got, _ := repo.GetForImage(ctx, "img-2")
		if got[0].ID != "a2" || got[1].ID != "a1" {
			t.Errorf("order = [%s, %s], want [a2, a1]", got[0].ID, got[1].ID)
		}
	})

	t.Run("unknown image yields an empty list", func(t *testing.T) {
		got, err := repo.GetForImage(ctx, "nope")
		if err != nil {
			t.Fatalf("GetForImage() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d annotations, want 0", len(got))
		}
	})
}

func TestAnnotationRepository_DeleteForImage(t *testing.T) {
	repo, ctx := setupTestRepository(t)
	repo.ReplaceForImage(ctx, "img-1", sampleAnnotations())

	if err := repo.DeleteForImage(ctx, "img-1"); err != nil {
		t.Fatalf("DeleteForImage() error = %v", err)
	}
	got, _ := repo.GetForImage(ctx, "img-1")
	if len(got) != 0 {
		t.Errorf("got %d annotations after delete, want 0", len(got))
	}
}

func TestAnnotationRepository_ROI(t *testing.T) {
	repo, ctx := setupTestRepository(t)
	now := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	roi := &domain.ROI{
		ID:         "r1",
		ImageID:    "img-1",
		Polygon:    []domain.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}},
		Active:     true,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	t.Run("round-trips a region", func(t *testing.T) {
		if err := repo.SaveROI(ctx, roi); err != nil {
			t.Fatalf("SaveROI() error = %v", err)
		}
		got, err := repo.GetROI(ctx, "img-1")
		if err != nil {
			t.Fatalf("GetROI() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetROI() = nil, want region")
		}
		if got.ID != "r1" || !got.Active || len(got.Polygon) != 3 {
			t.Errorf("roi = %+v", got)
		}
	})

	t.Run("saving again replaces the image's region", func(t *testing.T) {
		replacement := roi.Clone()
		replacement.ID = "r2"
		replacement.Polygon = append(replacement.Polygon, domain.Point{X: 0, Y: 100})
		if err := repo.SaveROI(ctx, replacement); err != nil {
			t.Fatalf("SaveROI() error = %v", err)
		}
		got, _ := repo.GetROI(ctx, "img-1")
		if got.ID != "r2" || len(got.Polygon) != 4 {
			t.Errorf("roi = %+v, want replacement r2", got)
		}
	})

	t.Run("clear removes the region", func(t *testing.T) {
		if err := repo.ClearROI(ctx, "img-1"); err != nil {
			t.Fatalf("ClearROI() error = %v", err)
		}
		got, err := repo.GetROI(ctx, "img-1")
		if err != nil {
			t.Fatalf("GetROI() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetROI() = %+v, want nil", got)
		}
	})
}

func TestAnnotationRepository_Stats(t *testing.T) {
	repo, ctx := setupTestRepository(t)
	repo.ReplaceForImage(ctx, "img-1", sampleAnnotations())
	repo.ReplaceForImage(ctx, "img-2", sampleAnnotations()[:1])

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Images != 2 {
		t.Errorf("Images = %d, want 2", stats.Images)
	}
	if stats.Annotations != 3 {
		t.Errorf("Annotations = %d, want 3", stats.Annotations)
	}
	if stats.ByState[domain.StateVerified] != 2 || stats.ByState[domain.StateSuggested] != 1 {
		t.Errorf("ByState = %v", stats.ByState)
	}
}
