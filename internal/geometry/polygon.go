package geometry

import (
	"math"

	"github.com/lewtec/revisor/internal/domain"
)

// PointInPolygon reports whether p lies inside the polygon using
// even-odd ray casting: a horizontal ray at p.Y toggles inclusion each
// time it crosses an edge. Polygons with fewer than 3 vertices contain
// nothing.
func PointInPolygon(p domain.Point, polygon []domain.Point) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := range polygon {
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonArea returns the enclosed area by the shoelace formula.
// Degenerate polygons have zero area.
func PolygonArea(polygon []domain.Point) float64 {
	if len(polygon) < 3 {
		return 0
	}
	sum := 0.0
	j := len(polygon) - 1
	for i := range polygon {
		sum += polygon[j].X*polygon[i].Y - polygon[i].X*polygon[j].Y
		j = i
	}
	return math.Abs(sum) / 2
}

// PolygonPerimeter returns the total edge length with the polygon
// treated as closed.
func PolygonPerimeter(polygon []domain.Point) float64 {
	if len(polygon) < 2 {
		return 0
	}
	sum := 0.0
	j := len(polygon) - 1
	for i := range polygon {
		sum += math.Hypot(polygon[i].X-polygon[j].X, polygon[i].Y-polygon[j].Y)
		j = i
	}
	return sum
}

// PolygonBounds returns the axis-aligned bounding box of the polygon.
func PolygonBounds(polygon []domain.Point) domain.Rect {
	if len(polygon) == 0 {
		return domain.Rect{}
	}
	minX, minY := polygon[0].X, polygon[0].Y
	maxX, maxY := minX, minY
	for _, p := range polygon[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return domain.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// DedupePolygon drops consecutive vertices that coincide within
// tolerance, including a trailing vertex coinciding with the first.
func DedupePolygon(polygon []domain.Point, tolerance float64) []domain.Point {
	if len(polygon) == 0 {
		return nil
	}
	out := make([]domain.Point, 0, len(polygon))
	out = append(out, polygon[0])
	for _, p := range polygon[1:] {
		last := out[len(out)-1]
		if math.Hypot(p.X-last.X, p.Y-last.Y) <= tolerance {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 {
		first, last := out[0], out[len(out)-1]
		if math.Hypot(first.X-last.X, first.Y-last.Y) <= tolerance {
			out = out[:len(out)-1]
		}
	}
	return out
}
