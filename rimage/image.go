// Package rimage holds the float raster and the image filters the stitching pipeline is built on.
package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/panorama/utils"
)

// ErrEmptyImage is returned by operations that cannot work on an image with zero width or height.
var ErrEmptyImage = errors.New("image has zero width or height")

// FloatImage is a dense raster of float64 samples with one or more channels per pixel.
// Samples of color images are kept in [0, 1], derived images (gradients, tensors,
// responses) may hold any real value.
type FloatImage struct {
	width    int
	height   int
	channels int
	data     []float64
}

// NewFloatImage returns a zeroed image of the given size.
func NewFloatImage(width, height, channels int) *FloatImage {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if channels < 1 {
		channels = 1
	}
	return &FloatImage{
		width:    width,
		height:   height,
		channels: channels,
		data:     make([]float64, width*height*channels),
	}
}

// NewFloatImageFromImage converts a standard image to a FloatImage with samples in [0, 1].
// Gray images become single channel images, everything else becomes RGB; alpha is dropped.
func NewFloatImageFromImage(img image.Image) *FloatImage {
	bounds := img.Bounds()
	channels := 3
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = 1
	}
	fi := NewFloatImage(bounds.Dx(), bounds.Dy(), channels)
	utils.ParallelForEachPixel(bounds.Size(), func(x, y int) {
		c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
		if channels == 1 {
			g := color.Gray16Model.Convert(c).(color.Gray16)
			fi.Set(x, y, 0, float64(g.Y)/math.MaxUint16)
			return
		}
		r, g, b, _ := c.RGBA()
		fi.Set(x, y, 0, float64(r)/math.MaxUint16)
		fi.Set(x, y, 1, float64(g)/math.MaxUint16)
		fi.Set(x, y, 2, float64(b)/math.MaxUint16)
	})
	return fi
}

func (fi *FloatImage) kxy(x, y int) int {
	return (y*fi.width + x) * fi.channels
}

// Width returns the number of columns.
func (fi *FloatImage) Width() int {
	return fi.width
}

// Height returns the number of rows.
func (fi *FloatImage) Height() int {
	return fi.height
}

// Channels returns the number of samples per pixel.
func (fi *FloatImage) Channels() int {
	return fi.channels
}

// Bounds returns the image rectangle anchored at the origin.
func (fi *FloatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, fi.width, fi.height)
}

// Empty reports whether the image has no pixels.
func (fi *FloatImage) Empty() bool {
	return fi.width == 0 || fi.height == 0
}

// In reports whether (x, y) is a pixel of the image.
func (fi *FloatImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < fi.width && y < fi.height
}

// At returns channel c of pixel (x, y).
func (fi *FloatImage) At(x, y, c int) float64 {
	return fi.data[fi.kxy(x, y)+c]
}

// AtClamped is At with the coordinates clamped to the nearest edge pixel.
func (fi *FloatImage) AtClamped(x, y, c int) float64 {
	return fi.At(utils.ClampInt(x, 0, fi.width-1), utils.ClampInt(y, 0, fi.height-1), c)
}

// Set sets channel c of pixel (x, y).
func (fi *FloatImage) Set(x, y, c int, v float64) {
	fi.data[fi.kxy(x, y)+c] = v
}

// Fill sets every sample to v.
func (fi *FloatImage) Fill(v float64) {
	for i := range fi.data {
		fi.data[i] = v
	}
}

// Clone returns a deep copy.
func (fi *FloatImage) Clone() *FloatImage {
	out := &FloatImage{width: fi.width, height: fi.height, channels: fi.channels, data: make([]float64, len(fi.data))}
	copy(out.data, fi.data)
	return out
}

// Data returns a copy of the samples in row major, channel interleaved order.
func (fi *FloatImage) Data() []float64 {
	return append([]float64(nil), fi.data...)
}

// Channel extracts channel c as a single channel image.
func (fi *FloatImage) Channel(c int) *FloatImage {
	out := NewFloatImage(fi.width, fi.height, 1)
	for i := 0; i < fi.width*fi.height; i++ {
		out.data[i] = fi.data[i*fi.channels+c]
	}
	return out
}

// MinMax returns the smallest and largest sample of channel c.
func (fi *FloatImage) MinMax(c int) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := c; i < len(fi.data); i += fi.channels {
		lo = math.Min(lo, fi.data[i])
		hi = math.Max(hi, fi.data[i])
	}
	return lo, hi
}

const subpixelSlack = 1e-6

// Bilinear samples channel c at a real-valued position. ok is false when the position lies
// outside the grid spanned by the pixel centers.
func (fi *FloatImage) Bilinear(x, y float64, c int) (v float64, ok bool) {
	maxX, maxY := float64(fi.width-1), float64(fi.height-1)
	if !(x >= -subpixelSlack && y >= -subpixelSlack && x <= maxX+subpixelSlack && y <= maxY+subpixelSlack) {
		return 0, false
	}
	x = utils.ClampF64(x, 0, maxX)
	y = utils.ClampF64(y, 0, maxY)
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := utils.ClampInt(x0+1, 0, fi.width-1), utils.ClampInt(y0+1, 0, fi.height-1)
	fx, fy := x-float64(x0), y-float64(y0)
	top := (1-fx)*fi.At(x0, y0, c) + fx*fi.At(x1, y0, c)
	bottom := (1-fx)*fi.At(x0, y1, c) + fx*fi.At(x1, y1, c)
	return (1-fy)*top + fy*bottom, true
}

// Nearest samples channel c at the pixel closest to a real-valued position.
func (fi *FloatImage) Nearest(x, y float64, c int) (float64, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	xi, yi := math.Round(x), math.Round(y)
	if xi < 0 || yi < 0 || xi > float64(fi.width-1) || yi > float64(fi.height-1) {
		return 0, false
	}
	return fi.At(int(xi), int(yi), c), true
}

func toUint8(v float64) uint8 {
	return uint8(math.Round(utils.ClampF64(v, 0, 1) * 255))
}

// ToNRGBA renders the image for display or encoding. Single channel images are drawn in gray,
// samples are clamped to [0, 1].
func (fi *FloatImage) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(fi.Bounds())
	utils.ParallelForEachPixel(fi.Bounds().Size(), func(x, y int) {
		var r, g, b uint8
		if fi.channels < 3 {
			r = toUint8(fi.At(x, y, 0))
			g, b = r, r
		} else {
			r, g, b = toUint8(fi.At(x, y, 0)), toUint8(fi.At(x, y, 1)), toUint8(fi.At(x, y, 2))
		}
		out.SetNRGBA(x, y, color.NRGBA{r, g, b, 255})
	})
	return out
}

// ToNormalizedGray stretches channel c so its largest absolute value is white. Useful for
// looking at response maps and gradients.
func (fi *FloatImage) ToNormalizedGray(c int) *image.Gray {
	out := image.NewGray(fi.Bounds())
	lo, hi := fi.MinMax(c)
	scale := math.Max(math.Abs(lo), math.Abs(hi))
	if scale == 0 || math.IsInf(scale, 0) {
		return out
	}
	utils.ParallelForEachPixel(fi.Bounds().Size(), func(x, y int) {
		out.SetGray(x, y, color.Gray{toUint8(math.Abs(fi.At(x, y, c)) / scale)})
	})
	return out
}
