package rimage

import (
	"image"

	"go.viam.com/panorama/utils"
)

// Checkerboard renders a board of cellSize squares, each painted with the gray level
// level(cx, cy) of its cell. origin is the board coordinate that lands on pixel (0, 0),
// so two boards with origins differing by d show the same content shifted by -d.
func Checkerboard(width, height, cellSize int, origin image.Point, level func(cx, cy int) float64) *FloatImage {
	img := NewFloatImage(width, height, 1)
	if cellSize < 1 {
		cellSize = 1
	}
	utils.ParallelForEachPixel(img.Bounds().Size(), func(x, y int) {
		cx := utils.FloorDiv(x+origin.X, cellSize)
		cy := utils.FloorDiv(y+origin.Y, cellSize)
		img.Set(x, y, 0, level(cx, cy))
	})
	return img
}

// RandomCellLevels returns a deterministic level function for Checkerboard that gives every
// cell a pseudo random gray in [0.1, 0.9].
func RandomCellLevels(seed int64) func(cx, cy int) float64 {
	return func(cx, cy int) float64 {
		h := uint64(seed) ^ (uint64(int64(cx)) * 0x9E3779B97F4A7C15) ^ (uint64(int64(cy)) * 0xC2B2AE3D27D4EB4F)
		h ^= h >> 33
		h *= 0xFF51AFD7ED558CCD
		h ^= h >> 33
		h *= 0xC4CEB9FE1A85EC53
		h ^= h >> 33
		return 0.1 + 0.8*float64(h>>11)/float64(uint64(1)<<53)
	}
}
