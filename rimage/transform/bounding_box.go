package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// corners closer than this to an integer are snapped to it before rounding outwards.
const boundingBoxSnapTolerance = 1e-6

// maxCanvasCoordinate bounds the corners a homography may produce before the result is
// considered unusable as a pixel canvas.
const maxCanvasCoordinate = 1 << 24

// ComputeTransformedBoundingBox returns the smallest integer rectangle containing the image
// of the four corners (0,0), (w,0), (0,h), (w,h) under h. Min is floored and Max is ceiled.
func ComputeTransformedBoundingBox(width, height int, h *Homography) (image.Rectangle, error) {
	w, ht := float64(width), float64(height)
	corners := []r2.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: 0, Y: ht}, {X: w, Y: ht}}
	mapped := make([]r2.Point, 0, len(corners))
	for _, c := range corners {
		p := h.Apply(c)
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.Abs(p.X) > maxCanvasCoordinate || math.Abs(p.Y) > maxCanvasCoordinate {
			return image.Rectangle{}, errors.Errorf("homography %v sends corner %v out of range to %v", h, c, p)
		}
		mapped = append(mapped, p)
	}
	box := r2.RectFromPoints(mapped...)
	return image.Rect(
		int(math.Floor(snap(box.X.Lo))), int(math.Floor(snap(box.Y.Lo))),
		int(math.Ceil(snap(box.X.Hi))), int(math.Ceil(snap(box.Y.Hi))),
	), nil
}

func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < boundingBoxSnapTolerance {
		return r
	}
	return v
}

// UnionBoundingBox returns the smallest rectangle containing both boxes.
func UnionBoundingBox(a, b image.Rectangle) image.Rectangle {
	return a.Union(b)
}

// TranslationFor returns the translation that moves the top left corner of box to the origin.
func TranslationFor(box image.Rectangle) *Homography {
	return Translation(float64(-box.Min.X), float64(-box.Min.Y))
}
