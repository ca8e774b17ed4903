package keypoints

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestVisualizeCorners(t *testing.T) {
	img := createQuadrantImage(40, 20).ToNRGBA()
	out := VisualizeCorners(img, []image.Point{{10, 10}}, 3, color.NRGBA{255, 0, 0, 255})
	test.That(t, out.Bounds(), test.ShouldResemble, img.Bounds())
	r, g, _, _ := out.At(10, 10).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))
	test.That(t, g, test.ShouldEqual, uint32(0))
	r, _, _, _ = out.At(30, 5).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0))
}

func TestVisualizeFeatures(t *testing.T) {
	img := checkerboardImage(48, 48, image.Point{})
	features, err := ComputeFeatures(img, []image.Point{{12, 12}, {24, 36}}, DefaultDescriptorConfig())
	test.That(t, err, test.ShouldBeNil)
	out := VisualizeFeatures(img.ToNRGBA(), features)
	test.That(t, out.Bounds(), test.ShouldResemble, img.Bounds())
	// patch pixels are pure red or pure green
	r, g, b, _ := out.At(12, 12).RGBA()
	test.That(t, b, test.ShouldEqual, uint32(0))
	test.That(t, r == 0 || g == 0, test.ShouldBeTrue)
}

func TestVisualizePairs(t *testing.T) {
	imgA := checkerboardImage(48, 40, image.Point{})
	imgB := checkerboardImage(30, 48, image.Point{-10, 0})
	fa, err := ComputeFeatures(imgA, []image.Point{{12, 12}}, DefaultDescriptorConfig())
	test.That(t, err, test.ShouldBeNil)
	fb, err := ComputeFeatures(imgB, []image.Point{{22, 12}}, DefaultDescriptorConfig())
	test.That(t, err, test.ShouldBeNil)
	corrs, err := FindCorrespondences(fa, fb, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldHaveLength, 1)

	out := VisualizePairs(imgA.ToNRGBA(), imgB.ToNRGBA(), corrs)
	test.That(t, out.Bounds().Dx(), test.ShouldEqual, 78)
	test.That(t, out.Bounds().Dy(), test.ShouldEqual, 48)
	// below image A the canvas stays black
	r, g, b, _ := out.At(5, 45).RGBA()
	test.That(t, r+g+b, test.ShouldEqual, uint32(0))
}
