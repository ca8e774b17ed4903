package rimage

// GradientX approximates the horizontal derivative of every channel with the Sobel operator.
func GradientX(img *FloatImage) *FloatImage {
	kernel := GetSobelX()
	return Convolve(img, &kernel)
}

// GradientY approximates the vertical derivative of every channel with the Sobel operator.
func GradientY(img *FloatImage) *FloatImage {
	kernel := GetSobelY()
	return Convolve(img, &kernel)
}
