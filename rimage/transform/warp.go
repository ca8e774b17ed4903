package transform

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/utils"
)

// ApplyHomography draws src into dst through h: every dst pixel whose preimage under h lands
// inside src is overwritten, every other dst pixel is left alone. Sampling is bilinear or
// nearest neighbor. A single channel src is replicated over all dst channels.
func ApplyHomography(src *rimage.FloatImage, h *Homography, dst *rimage.FloatImage, bilinear bool) error {
	if src.Empty() {
		return rimage.ErrEmptyImage
	}
	inv, err := h.Inverse()
	if err != nil {
		return errors.Wrap(err, "cannot warp through a singular homography")
	}
	sample := src.Nearest
	if bilinear {
		sample = src.Bilinear
	}
	channels := dst.Channels()
	utils.ParallelForEachPixel(dst.Bounds().Size(), func(x, y int) {
		p := inv.Apply(r2.Point{X: float64(x), Y: float64(y)})
		for c := 0; c < channels; c++ {
			srcC := c
			if srcC >= src.Channels() {
				srcC = src.Channels() - 1
			}
			v, ok := sample(p.X, p.Y, srcC)
			if !ok {
				return
			}
			dst.Set(x, y, c, v)
		}
	})
	return nil
}
