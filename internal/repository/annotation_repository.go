package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lewtec/revisor/internal/domain"
)

// AnnotationRepository implements domain.AnnotationRepository on SQLite.
type AnnotationRepository struct {
	db *sql.DB
}

// NewAnnotationRepository creates a new AnnotationRepository.
func NewAnnotationRepository(db *sql.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// ReplaceForImage atomically replaces all annotations for an image.
// The saved sequence preserves the list order so reloads and exports
// stay diffable.
func (r *AnnotationRepository) ReplaceForImage(ctx context.Context, imageID string, annotations []*domain.Annotation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("while starting save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE image_id = ?`, imageID); err != nil {
		return fmt.Errorf("while clearing annotations for image %s: %w", imageID, err)
	}
	for seq, a := range annotations {
		mask, err := encodePoints(a.Mask)
		if err != nil {
			return fmt.Errorf("while encoding mask of annotation %s: %w", a.ID, err)
		}
		metadata, err := encodeMetadata(a.Metadata)
		if err != nil {
			return fmt.Errorf("while encoding metadata of annotation %s: %w", a.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO annotations (id, image_id, seq, bbox_x, bbox_y, bbox_w, bbox_h,
                         class_name, confidence, state, mask, metadata,
                         created_at, modified_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, imageID, seq,
			a.BBox.X, a.BBox.Y, a.BBox.Width, a.BBox.Height,
			a.ClassName, a.Confidence, string(a.State), mask, metadata,
			a.CreatedAt.UTC().Format(time.RFC3339Nano),
			a.ModifiedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("while inserting annotation %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// GetForImage retrieves all annotations for an image in saved order.
func (r *AnnotationRepository) GetForImage(ctx context.Context, imageID string) ([]*domain.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, bbox_x, bbox_y, bbox_w, bbox_h, class_name, confidence, state,
       mask, metadata, created_at, modified_at
FROM annotations WHERE image_id = ? ORDER BY seq`, imageID)
	if err != nil {
		return nil, fmt.Errorf("while querying annotations for image %s: %w", imageID, err)
	}
	defer rows.Close()

	var result []*domain.Annotation
	for rows.Next() {
		a := &domain.Annotation{ImageID: imageID}
		var state, createdAt, modifiedAt string
		var mask, metadata sql.NullString
		err := rows.Scan(&a.ID, &a.BBox.X, &a.BBox.Y, &a.BBox.Width, &a.BBox.Height,
			&a.ClassName, &a.Confidence, &state, &mask, &metadata, &createdAt, &modifiedAt)
		if err != nil {
			return nil, fmt.Errorf("while scanning annotation row: %w", err)
		}
		a.State = domain.State(state)
		if a.Mask, err = decodePoints(mask); err != nil {
			return nil, fmt.Errorf("while decoding mask of annotation %s: %w", a.ID, err)
		}
		if a.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, fmt.Errorf("while decoding metadata of annotation %s: %w", a.ID, err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("while parsing created_at of annotation %s: %w", a.ID, err)
		}
		if a.ModifiedAt, err = parseTime(modifiedAt); err != nil {
			return nil, fmt.Errorf("while parsing modified_at of annotation %s: %w", a.ID, err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// DeleteForImage removes all annotations for an image.
func (r *AnnotationRepository) DeleteForImage(ctx context.Context, imageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM annotations WHERE image_id = ?`, imageID)
	return err
}

// SaveROI stores the active ROI for its image, replacing any prior one.
func (r *AnnotationRepository) SaveROI(ctx context.Context, roi *domain.ROI) error {
	polygon, err := encodePoints(roi.Polygon)
	if err != nil {
		return fmt.Errorf("while encoding roi polygon: %w", err)
	}
	active := 0
	if roi.Active {
		active = 1
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO rois (id, image_id, polygon, active, created_at, modified_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(image_id) DO UPDATE SET
  id = excluded.id,
  polygon = excluded.polygon,
  active = excluded.active,
  modified_at = excluded.modified_at`,
		roi.ID, roi.ImageID, polygon.String, active,
		roi.CreatedAt.UTC().Format(time.RFC3339Nano),
		roi.ModifiedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("while saving roi for image %s: %w", roi.ImageID, err)
	}
	return nil
}

// GetROI retrieves the ROI for an image, or nil if none is stored.
func (r *AnnotationRepository) GetROI(ctx context.Context, imageID string) (*domain.ROI, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, polygon, active, created_at, modified_at FROM rois WHERE image_id = ?`, imageID)

	roi := &domain.ROI{ImageID: imageID}
	var polygon sql.NullString
	var active int
	var createdAt, modifiedAt string
	err := row.Scan(&roi.ID, &polygon, &active, &createdAt, &modifiedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while querying roi for image %s: %w", imageID, err)
	}
	roi.Active = active != 0
	if roi.Polygon, err = decodePoints(polygon); err != nil {
		return nil, fmt.Errorf("while decoding roi polygon: %w", err)
	}
	if roi.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("while parsing roi created_at: %w", err)
	}
	if roi.ModifiedAt, err = parseTime(modifiedAt); err != nil {
		return nil, fmt.Errorf("while parsing roi modified_at: %w", err)
	}
	return roi, nil
}

// ClearROI removes the stored ROI for an image.
func (r *AnnotationRepository) ClearROI(ctx context.Context, imageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rois WHERE image_id = ?`, imageID)
	return err
}

// Stats returns overall counts of persisted work.
func (r *AnnotationRepository) Stats(ctx context.Context) (*domain.ReviewStats, error) {
	stats := &domain.ReviewStats{ByState: map[domain.State]int64{}}

	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT image_id), COUNT(*) FROM annotations`)
	if err := row.Scan(&stats.Images, &stats.Annotations); err != nil {
		return nil, fmt.Errorf("while counting annotations: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM annotations GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("while counting annotations by state: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("while scanning state counts: %w", err)
		}
		stats.ByState[domain.State(state)] = n
	}
	return stats, rows.Err()
}

func encodePoints(points []domain.Point) (sql.NullString, error) {
	if len(points) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(points)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodePoints(s sql.NullString) ([]domain.Point, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var points []domain.Point
	if err := json.Unmarshal([]byte(s.String), &points); err != nil {
		return nil, err
	}
	return points, nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMetadata(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Verify that AnnotationRepository implements domain.AnnotationRepository
var _ domain.AnnotationRepository = (*AnnotationRepository)(nil)
