package panorama

import (
	"github.com/pkg/errors"

	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/rimage/transform"
)

// MaxCanvasPixels bounds the size of a composite.
const MaxCanvasPixels = 1 << 27

// ErrCanvasTooLarge is returned when the warped images would span an unreasonably large canvas.
var ErrCanvasTooLarge = errors.New("panorama canvas is too large")

// Composite warps a onto the frame of b through h, which maps points of a to points of b, and
// returns both images on a canvas just large enough to hold them. b is drawn first and a on
// top of it.
func Composite(a, b *rimage.FloatImage, h *transform.Homography, bilinear bool) (*rimage.FloatImage, error) {
	if a.Empty() || b.Empty() {
		return nil, rimage.ErrEmptyImage
	}
	boxA, err := transform.ComputeTransformedBoundingBox(a.Width(), a.Height(), h)
	if err != nil {
		return nil, err
	}
	boxB, err := transform.ComputeTransformedBoundingBox(b.Width(), b.Height(), transform.IdentityHomography())
	if err != nil {
		return nil, err
	}
	box := transform.UnionBoundingBox(boxA, boxB)
	if box.Dx()*box.Dy() > MaxCanvasPixels {
		return nil, errors.Wrapf(ErrCanvasTooLarge, "%dx%d", box.Dx(), box.Dy())
	}
	t := transform.TranslationFor(box)

	channels := a.Channels()
	if b.Channels() > channels {
		channels = b.Channels()
	}
	canvas := rimage.NewFloatImage(box.Dx(), box.Dy(), channels)
	if err := transform.ApplyHomography(b, t, canvas, bilinear); err != nil {
		return nil, err
	}
	if err := transform.ApplyHomography(a, t.Compose(h), canvas, bilinear); err != nil {
		return nil, err
	}
	return canvas, nil
}
