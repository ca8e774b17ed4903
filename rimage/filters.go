package rimage

import (
	"image"
	"math"

	"go.viam.com/panorama/utils"
)

// Helper function for convolving images, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the image.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}.
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	if length%2 == 0 {
		span := length / 2
		return append([]int{-span}, makeRangeArray(length-1)...)
	}
	span := (length - 1) / 2
	for i := 0; i < span; i++ {
		rangeArray[length-1-i] = span - i
		rangeArray[i] = -span + i
	}
	return rangeArray
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*utils.Square(p)/utils.Square(sigma)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// GaussianKernel1D returns a normalized gaussian kernel of radius ceil(3 * sigma).
// A non positive sigma gives the identity kernel.
func GaussianKernel1D(sigma float64) []float64 {
	if sigma <= 0 {
		return []float64{1}
	}
	radius := int(math.Ceil(3 * sigma))
	gaus := GaussianFunction1D(sigma)
	kernel := make([]float64, 2*radius+1)
	sum := 0.
	for i, dx := range makeRangeArray(len(kernel)) {
		kernel[i] = gaus(float64(dx))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur blurs every channel with a separable gaussian of the given sigma. Pixels past
// the border take the value of the nearest edge pixel.
func GaussianBlur(img *FloatImage, sigma float64) *FloatImage {
	if sigma <= 0 {
		return img.Clone()
	}
	kernel := GaussianKernel1D(sigma)
	return convolveSeparable(img, kernel, kernel)
}

// convolveSeparable correlates img with kx along rows, then with ky along columns.
func convolveSeparable(img *FloatImage, kx, ky []float64) *FloatImage {
	xRange, yRange := makeRangeArray(len(kx)), makeRangeArray(len(ky))
	size := img.Bounds().Size()

	rows := NewFloatImage(img.width, img.height, img.channels)
	utils.ParallelForEachPixel(size, func(x, y int) {
		for c := 0; c < img.channels; c++ {
			sum := 0.
			for i, dx := range xRange {
				sum += kx[i] * img.AtClamped(x+dx, y, c)
			}
			rows.Set(x, y, c, sum)
		}
	})

	out := NewFloatImage(img.width, img.height, img.channels)
	utils.ParallelForEachPixel(size, func(x, y int) {
		for c := 0; c < img.channels; c++ {
			sum := 0.
			for j, dy := range yRange {
				sum += ky[j] * rows.AtClamped(x, y+dy, c)
			}
			out.Set(x, y, c, sum)
		}
	})
	return out
}

// MaximumFilter replaces every sample with the largest sample of the same channel in the
// diameter x diameter window around it. Only in-bounds neighbors are considered.
// A diameter below 1 is treated as 1.
func MaximumFilter(img *FloatImage, diameter int) *FloatImage {
	if diameter < 1 {
		diameter = 1
	}
	offsets := makeRangeArray(diameter)
	size := img.Bounds().Size()
	// the max over a square window is the max over its columns of the max over its rows
	rows := NewFloatImage(img.width, img.height, img.channels)
	utils.ParallelForEachPixel(size, func(x, y int) {
		for c := 0; c < img.channels; c++ {
			best := math.Inf(-1)
			for _, dx := range offsets {
				if img.In(x+dx, y) {
					best = math.Max(best, img.At(x+dx, y, c))
				}
			}
			rows.Set(x, y, c, best)
		}
	})
	out := NewFloatImage(img.width, img.height, img.channels)
	utils.ParallelForEachPixel(size, func(x, y int) {
		for c := 0; c < img.channels; c++ {
			best := math.Inf(-1)
			for _, dy := range offsets {
				if rows.In(x, y+dy) {
					best = math.Max(best, rows.At(x, y+dy, c))
				}
			}
			out.Set(x, y, c, best)
		}
	})
	return out
}

// Crop copies the part of img inside r; r is clipped to the image bounds.
func Crop(img *FloatImage, r image.Rectangle) *FloatImage {
	r = r.Intersect(img.Bounds())
	out := NewFloatImage(r.Dx(), r.Dy(), img.channels)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(out.data[out.kxy(0, y-r.Min.Y):out.kxy(0, y-r.Min.Y+1)], img.data[img.kxy(r.Min.X, y):img.kxy(r.Max.X, y)])
	}
	return out
}
