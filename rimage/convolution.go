package rimage

import (
	"image"

	"go.viam.com/panorama/utils"
)

// Kernel is a dense 2D filter. Content is indexed [row][column].
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// At returns the kernel weight at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel dimensions.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return Kernel{[][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	},
		3,
		3,
	}
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() Kernel {
	return Kernel{[][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	},
		3,
		3,
	}
}

// Convolve correlates every channel of img with the kernel anchored at its center
// (see makeRangeArray for even sizes). Pixels past the border take the value of the
// nearest edge pixel. There is no clamping of the result.
func Convolve(img *FloatImage, kernel *Kernel) *FloatImage {
	xRange, yRange := makeRangeArray(kernel.Width), makeRangeArray(kernel.Height)
	out := NewFloatImage(img.width, img.height, img.channels)
	utils.ParallelForEachPixel(img.Bounds().Size(), func(x, y int) {
		for c := 0; c < img.channels; c++ {
			sum := 0.
			for j, dy := range yRange {
				for i, dx := range xRange {
					sum += kernel.At(i, j) * img.AtClamped(x+dx, y+dy, c)
				}
			}
			out.Set(x, y, c, sum)
		}
	})
	return out
}
