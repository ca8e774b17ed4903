package rimage

import (
	"github.com/pkg/errors"
)

// Luminance weights for red, green and blue.
var lumiWeights = [3]float64{0.3, 0.6, 0.1}

// Luminance collapses an image to a single channel of perceived brightness. Images with
// fewer than three channels already are luminance and are copied from channel 0.
func Luminance(img *FloatImage) *FloatImage {
	if img.channels < 3 {
		return img.Channel(0)
	}
	lumi := NewFloatImage(img.width, img.height, 1)
	for i := 0; i < img.width*img.height; i++ {
		rgb := img.data[i*img.channels : i*img.channels+3]
		lumi.data[i] = lumiWeights[0]*rgb[0] + lumiWeights[1]*rgb[1] + lumiWeights[2]*rgb[2]
	}
	return lumi
}

// LumiChromi splits an image into its luminance and its chrominance, the per channel ratio
// of each sample to the pixel's luminance. Black pixels get a chrominance of 0, single
// channel images get a chrominance of 1 everywhere.
func LumiChromi(img *FloatImage) (*FloatImage, *FloatImage) {
	lumi := Luminance(img)
	chromi := NewFloatImage(img.width, img.height, img.channels)
	if img.channels < 3 {
		chromi.Fill(1)
		return lumi, chromi
	}
	for i := 0; i < img.width*img.height; i++ {
		l := lumi.data[i]
		if l == 0 {
			continue
		}
		for c := 0; c < img.channels; c++ {
			chromi.data[i*img.channels+c] = img.data[i*img.channels+c] / l
		}
	}
	return lumi, chromi
}

// LumiChromiToImage recombines a luminance and a chrominance image.
func LumiChromiToImage(lumi, chromi *FloatImage) (*FloatImage, error) {
	if !lumi.Bounds().Eq(chromi.Bounds()) {
		return nil, errors.Errorf("luminance %v and chrominance %v sizes differ", lumi.Bounds(), chromi.Bounds())
	}
	out := NewFloatImage(chromi.width, chromi.height, chromi.channels)
	for i := 0; i < out.width*out.height; i++ {
		for c := 0; c < out.channels; c++ {
			out.data[i*out.channels+c] = lumi.data[i] * chromi.data[i*chromi.channels+c]
		}
	}
	return out, nil
}
