package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty outlines r in the context.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// DrawDisk fills a circle of the given radius around p.
func DrawDisk(dc *gg.Context, p image.Point, radius float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawCircle(float64(p.X), float64(p.Y), radius)
	dc.Fill()
}

// SideBySide draws left and right next to each other on a black canvas tall enough for both.
func SideBySide(left, right image.Image) *gg.Context {
	lb, rb := left.Bounds(), right.Bounds()
	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}
	dc := gg.NewContext(lb.Dx()+rb.Dx(), height)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.DrawImage(left, 0, 0)
	dc.DrawImage(right, lb.Dx(), 0)
	return dc
}
