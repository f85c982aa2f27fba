// Package geometry implements the pure coordinate and shape math the
// review engine is built on: the image-to-surface affine mapping, box
// manipulation for interactive editing, and polygon queries.
package geometry

import (
	"math"
)

// Mapping relates original image pixel space to a scaled, centered
// display surface. It is derived data: recompute it whenever the image
// or the surface changes, and never reuse a mapping across images.
type Mapping struct {
	Scale       float64
	OffsetX     float64
	OffsetY     float64
	ImageWidth  float64
	ImageHeight float64
}

// ComputeMapping fits an image into a surface without upscaling past
// native resolution and centers it in the leftover space. Degenerate
// inputs yield an identity-like mapping carrying the true image size.
func ComputeMapping(imageWidth, imageHeight, surfaceWidth, surfaceHeight float64) Mapping {
	if imageWidth <= 0 || imageHeight <= 0 || surfaceWidth <= 0 || surfaceHeight <= 0 {
		return Mapping{Scale: 1, ImageWidth: imageWidth, ImageHeight: imageHeight}
	}
	scale := math.Min(surfaceWidth/imageWidth, surfaceHeight/imageHeight)
	if scale > 1 {
		scale = 1
	}
	return Mapping{
		Scale:       scale,
		OffsetX:     (surfaceWidth - imageWidth*scale) / 2,
		OffsetY:     (surfaceHeight - imageHeight*scale) / 2,
		ImageWidth:  imageWidth,
		ImageHeight: imageHeight,
	}
}

// ToImageSpace translates a surface coordinate into image pixel space,
// clamped to the image extent.
func (m Mapping) ToImageSpace(px, py float64) (float64, float64) {
	x := (px - m.OffsetX) / m.Scale
	y := (py - m.OffsetY) / m.Scale
	return clamp(x, 0, m.ImageWidth), clamp(y, 0, m.ImageHeight)
}

// ToSurfaceSpace translates an image pixel coordinate into surface
// space. Inverse of ToImageSpace up to floating-point rounding.
func (m Mapping) ToSurfaceSpace(x, y float64) (float64, float64) {
	return x*m.Scale + m.OffsetX, y*m.Scale + m.OffsetY
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
