// Package keypoints finds Harris corners in an image, describes the patch around each one and
// matches descriptors across two images.
package keypoints

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"

	"go.viam.com/panorama/rimage"
)

// KeyPoints is a slice of image.Point that contains several kps.
type KeyPoints []image.Point

// VisualizeCorners draws a filled disk on top of img at every corner.
func VisualizeCorners(img image.Image, kps []image.Point, radius float64, c color.Color) image.Image {
	dc := gg.NewContextForImage(img)
	for _, p := range kps {
		rimage.DrawDisk(dc, p, radius, c)
	}
	return dc.Image()
}

// VisualizeFeatures paints every descriptor over its patch: positive samples in green,
// negative ones in red, brighter for larger magnitudes. Each patch is outlined in blue.
func VisualizeFeatures(img image.Image, features []*Feature) image.Image {
	dc := gg.NewContextForImage(img)
	origin := img.Bounds().Min
	for _, f := range features {
		d := f.descriptor
		r := d.radius
		for dy := 0; dy < d.Side(); dy++ {
			for dx := 0; dx < d.Side(); dx++ {
				v := d.At(dx, dy)
				level := uint8(255 * v * v / (1 + v*v))
				if v >= 0 {
					dc.SetColor(color.NRGBA{0, level, 0, 255})
				} else {
					dc.SetColor(color.NRGBA{level, 0, 0, 255})
				}
				dc.SetPixel(f.point.X-origin.X-r+dx, f.point.Y-origin.Y-r+dy)
			}
		}
		window := descriptorWindow(f.point.Sub(origin), r)
		rimage.DrawRectangleEmpty(dc, window, color.NRGBA{0, 0, 255, 255}, 1)
	}
	return dc.Image()
}

// pairColor spreads n line colors evenly around the hue circle.
func pairColor(i, n int) color.Color {
	if n <= 0 {
		n = 1
	}
	return colorful.Hsv(360*float64(i)/float64(n), 0.9, 0.95)
}

// VisualizePairs shows the two images side by side with a line joining the two features of
// every correspondence, each line in its own hue.
func VisualizePairs(img1, img2 image.Image, corrs []FeatureCorrespondence) image.Image {
	dc := rimage.SideBySide(img1, img2)
	offset := float64(img1.Bounds().Dx())
	o1, o2 := img1.Bounds().Min, img2.Bounds().Min
	dc.SetLineWidth(1)
	for i, c := range corrs {
		p1, p2 := c.f1.point.Sub(o1), c.f2.point.Sub(o2)
		dc.SetColor(pairColor(i, len(corrs)))
		dc.DrawLine(float64(p1.X), float64(p1.Y), offset+float64(p2.X), float64(p2.Y))
		dc.Stroke()
		dc.DrawCircle(float64(p1.X), float64(p1.Y), 2)
		dc.DrawCircle(offset+float64(p2.X), float64(p2.Y), 2)
		dc.Fill()
	}
	return dc.Image()
}
