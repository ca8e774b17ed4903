package rimage

import (
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"

	// register webp for decoding.
	_ "golang.org/x/image/webp"
)

// ReadImageFromFile decodes png, jpeg, gif, bmp, tiff, webp, ppm and qoi files. EXIF
// orientation is applied.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(filepath.Clean(path), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// NewFloatImageFromFile reads an image file straight into a FloatImage.
func NewFloatImageFromFile(path string) (*FloatImage, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewFloatImageFromImage(img), nil
}

// WriteImageToFile encodes img according to the file extension.
func WriteImageToFile(path string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm":
		return encodeToFile(path, toRGBA(img), ppm.Encode)
	case ".qoi":
		return encodeToFile(path, img, qoi.Encode)
	default:
		if err := imaging.Save(img, path); err != nil {
			return errors.Wrapf(err, "cannot write image %q", path)
		}
		return nil
	}
}

// toRGBA returns img as an *image.RGBA, the only color model the ppm encoder accepts.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// encodeToFile writes img to path with encode. A file that failed to encode is removed.
func encodeToFile(path string, img image.Image, encode func(io.Writer, image.Image) error) (err error) {
	path = filepath.Clean(path)
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
		if err != nil {
			err = multierr.Combine(errors.Wrapf(err, "cannot write image %q", path), os.Remove(path))
		}
	}()
	return encode(f, img)
}
