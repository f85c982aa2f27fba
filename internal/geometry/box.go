package geometry

import (
	"math"

	"github.com/lewtec/revisor/internal/domain"
)

// Handle identifies one of the eight compass-direction resize grips.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// Handles enumerates the grips in their canonical order. Hit-test ties
// are broken by this order.
var Handles = [8]Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// HandleCenter returns the image-space position of a grip on a box.
func HandleCenter(box domain.Rect, h Handle) domain.Point {
	cx, cy := box.X+box.Width/2, box.Y+box.Height/2
	switch h {
	case HandleNW:
		return domain.Point{X: box.X, Y: box.Y}
	case HandleN:
		return domain.Point{X: cx, Y: box.Y}
	case HandleNE:
		return domain.Point{X: box.Right(), Y: box.Y}
	case HandleE:
		return domain.Point{X: box.Right(), Y: cy}
	case HandleSE:
		return domain.Point{X: box.Right(), Y: box.Bottom()}
	case HandleS:
		return domain.Point{X: cx, Y: box.Bottom()}
	case HandleSW:
		return domain.Point{X: box.X, Y: box.Bottom()}
	default:
		return domain.Point{X: box.X, Y: cy}
	}
}

// HitTestHandle returns the nearest grip whose center lies within
// handleSize/2+tolerance of p. Ties go to the earlier grip in the
// canonical order. The second return is false when no grip is hit.
func HitTestHandle(box domain.Rect, p domain.Point, handleSize, tolerance float64) (Handle, bool) {
	reach := handleSize/2 + tolerance
	var best Handle
	bestDist := math.Inf(1)
	for _, h := range Handles {
		c := HandleCenter(box, h)
		d := math.Hypot(p.X-c.X, p.Y-c.Y)
		if d <= reach && d < bestDist {
			best, bestDist = h, d
		}
	}
	if math.IsInf(bestDist, 1) {
		return "", false
	}
	return best, true
}

// ClampMinSize widens a box to at least the minimum footprint, anchored
// at its top-left corner. Dimensions already at or above the minimum
// are left alone.
func ClampMinSize(box domain.Rect, minW, minH float64) domain.Rect {
	if box.Width < minW {
		box.Width = minW
	}
	if box.Height < minH {
		box.Height = minH
	}
	return box
}

// Resize recomputes a box from a grip being dragged to a surface-space
// pointer position. The edges opposite the grip stay fixed; dragging a
// grip past the opposite edge clamps the box at the minimum size
// instead of inverting it.
func Resize(box domain.Rect, h Handle, surfaceX, surfaceY float64, m Mapping, minW, minH float64) domain.Rect {
	px, py := m.ToImageSpace(surfaceX, surfaceY)
	left, top := box.X, box.Y
	right, bottom := box.Right(), box.Bottom()

	switch h {
	case HandleNW, HandleW, HandleSW:
		left = math.Min(px, right-minW)
	case HandleNE, HandleE, HandleSE:
		right = math.Max(px, left+minW)
	}
	switch h {
	case HandleNW, HandleN, HandleNE:
		top = math.Min(py, bottom-minH)
	case HandleSW, HandleS, HandleSE:
		bottom = math.Max(py, top+minH)
	}

	return ClampMinSize(domain.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}, minW, minH)
}

// Move translates a box without resizing it, keeping it fully inside
// bounds.
func Move(box domain.Rect, deltaX, deltaY float64, bounds domain.Rect) domain.Rect {
	box.X = clamp(box.X+deltaX, bounds.X, math.Max(bounds.X, bounds.Right()-box.Width))
	box.Y = clamp(box.Y+deltaY, bounds.Y, math.Max(bounds.Y, bounds.Bottom()-box.Height))
	return box
}

// PointInRect reports whether p lies inside the box, edges included.
func PointInRect(p domain.Point, box domain.Rect) bool {
	return p.X >= box.X && p.X <= box.Right() && p.Y >= box.Y && p.Y <= box.Bottom()
}
