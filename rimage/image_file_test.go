package rimage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func testPatternImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(40 * x), uint8(60 * y), 200, 255})
		}
	}
	return img
}

func TestImageFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testPatternImage()
	for _, name := range []string{"pattern.png", "pattern.qoi", "pattern.ppm"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			test.That(t, WriteImageToFile(path, original), test.ShouldBeNil)

			fi, err := NewFloatImageFromFile(path)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, fi.Width(), test.ShouldEqual, 6)
			test.That(t, fi.Height(), test.ShouldEqual, 4)
			back := fi.ToNRGBA()
			test.That(t, back.NRGBAAt(5, 3), test.ShouldResemble, original.NRGBAAt(5, 3))
			test.That(t, back.NRGBAAt(2, 1), test.ShouldResemble, original.NRGBAAt(2, 1))
		})
	}

	// the ppm encoder only takes RGBA, other models are converted
	gray := image.NewGray(image.Rect(2, 3, 7, 6))
	gray.SetGray(2, 3, color.Gray{Y: 90})
	grayPath := filepath.Join(dir, "gray.ppm")
	test.That(t, WriteImageToFile(grayPath, gray), test.ShouldBeNil)
	fromGray, err := ReadImageFromFile(grayPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromGray.Bounds().Size(), test.ShouldResemble, image.Pt(5, 3))
	r, g, b, _ := fromGray.At(0, 0).RGBA()
	test.That(t, []uint32{r >> 8, g >> 8, b >> 8}, test.ShouldResemble, []uint32{90, 90, 90})

	// nothing is left behind when encoding fails
	emptyPath := filepath.Join(dir, "empty.qoi")
	test.That(t, WriteImageToFile(emptyPath, image.NewNRGBA(image.Rect(0, 0, 0, 0))), test.ShouldNotBeNil)
	_, err = os.Stat(emptyPath)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	_, err = ReadImageFromFile(filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.png")
}

func TestDraw(t *testing.T) {
	left := image.NewGray(image.Rect(0, 0, 10, 20))
	right := image.NewGray(image.Rect(0, 0, 15, 5))
	dc := SideBySide(left, right)
	test.That(t, dc.Width(), test.ShouldEqual, 25)
	test.That(t, dc.Height(), test.ShouldEqual, 20)

	DrawDisk(dc, image.Pt(5, 5), 2, color.White)
	DrawRectangleEmpty(dc, image.Rect(12, 1, 20, 4), color.White, 1)
	DrawString(dc, "a", image.Pt(1, 15), color.White, 8)
	r, _, _, _ := dc.Image().At(5, 5).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))
}
