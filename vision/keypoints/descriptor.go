package keypoints

import (
	"fmt"
	"image"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/panorama/rimage"
)

var (
	// ErrDescriptorOutOfBounds is returned when a descriptor window does not fit in the image.
	ErrDescriptorOutOfBounds = errors.New("descriptor window is out of bounds")
	// ErrDegenerateDescriptor is returned when a descriptor window has no contrast to normalize.
	ErrDegenerateDescriptor = errors.New("descriptor window has zero variance")
)

// below this variance a patch is considered flat.
const minDescriptorVariance = 1e-12

// DescriptorConfig contains the parameters of the patch descriptor.
type DescriptorConfig struct {
	SigmaBlur float64 `json:"sigma_blur"`
	Radius    int     `json:"radius"`
	// SkipDegenerate drops flat patches instead of failing the whole batch.
	SkipDegenerate bool `json:"skip_degenerate"`
}

// DefaultDescriptorConfig returns the descriptor parameters used by the stitcher.
func DefaultDescriptorConfig() *DescriptorConfig {
	return &DescriptorConfig{SigmaBlur: 0.5, Radius: 4}
}

// Validate ensures all parts of the DescriptorConfig are valid.
func (config *DescriptorConfig) Validate(path string) error {
	if config.SigmaBlur < 0 {
		return utils.NewConfigValidationError(path, errors.New("sigma_blur should be >= 0"))
	}
	if config.Radius < 0 {
		return utils.NewConfigValidationError(path, errors.New("radius should be >= 0"))
	}
	return nil
}

// Descriptor is a square patch of (2*radius+1)² luminance samples normalized to zero mean
// and unit variance.
type Descriptor struct {
	radius int
	data   []float64
}

// NewDescriptor wraps a copy of row major patch samples.
func NewDescriptor(radius int, data []float64) (*Descriptor, error) {
	side := 2*radius + 1
	if radius < 0 || len(data) != side*side {
		return nil, errors.Errorf("descriptor of radius %d needs %d samples, got %d", radius, side*side, len(data))
	}
	return &Descriptor{radius: radius, data: append([]float64(nil), data...)}, nil
}

// Radius of the patch.
func (d *Descriptor) Radius() int {
	return d.radius
}

// Side is the patch width and height.
func (d *Descriptor) Side() int {
	return 2*d.radius + 1
}

// At returns the sample at column dx, row dy of the patch, both in [0, Side()).
func (d *Descriptor) At(dx, dy int) float64 {
	return d.data[dy*d.Side()+dx]
}

// Data returns a copy of the samples in row major order.
func (d *Descriptor) Data() []float64 {
	return append([]float64(nil), d.data...)
}

// Feature is a corner and the descriptor of the patch around it.
type Feature struct {
	point      image.Point
	descriptor *Descriptor
}

// NewFeature pairs a point with its descriptor.
func NewFeature(p image.Point, d *Descriptor) *Feature {
	return &Feature{point: p, descriptor: d}
}

// Point is the pixel the descriptor is centered on.
func (f *Feature) Point() image.Point {
	return f.point
}

// Descriptor of the patch around Point.
func (f *Feature) Descriptor() *Descriptor {
	return f.descriptor
}

func (f *Feature) String() string {
	return fmt.Sprintf("feature at %v (radius %d)", f.point, f.descriptor.radius)
}

// BlurredLuminance is the image descriptors are sampled from.
func BlurredLuminance(img *rimage.FloatImage, sigma float64) *rimage.FloatImage {
	return rimage.GaussianBlur(rimage.Luminance(img), sigma)
}

func descriptorWindow(p image.Point, radius int) image.Rectangle {
	return image.Rect(p.X-radius, p.Y-radius, p.X+radius+1, p.Y+radius+1)
}

// ComputeDescriptor samples the window of the given radius around p from a single channel
// image and normalizes it.
func ComputeDescriptor(blurred *rimage.FloatImage, p image.Point, radius int) (*Descriptor, error) {
	window := descriptorWindow(p, radius)
	if radius < 0 || !window.In(blurred.Bounds()) {
		return nil, errors.Wrapf(ErrDescriptorOutOfBounds, "point %v with radius %d in %v", p, radius, blurred.Bounds())
	}
	data := rimage.Crop(blurred, window).Channel(0).Data()
	mean := stat.Mean(data, nil)
	variance := stat.PopVariance(data, nil)
	if !(variance > minDescriptorVariance) {
		return nil, errors.Wrapf(ErrDegenerateDescriptor, "point %v", p)
	}
	std := math.Sqrt(variance)
	for i := range data {
		data[i] = (data[i] - mean) / std
	}
	return &Descriptor{radius: radius, data: data}, nil
}

// FilterCornersForDescriptor keeps the corners whose descriptor window of the given radius
// lies entirely inside bounds.
func FilterCornersForDescriptor(corners []image.Point, bounds image.Rectangle, radius int) KeyPoints {
	return lo.Filter(corners, func(p image.Point, _ int) bool {
		return descriptorWindow(p, radius).In(bounds)
	})
}

// ComputeFeatures builds one feature per corner, in corner order. Corners whose window leaves
// the image are an error, as are flat patches unless cfg.SkipDegenerate is set.
func ComputeFeatures(img *rimage.FloatImage, corners []image.Point, cfg *DescriptorConfig) ([]*Feature, error) {
	if img == nil || img.Empty() {
		return nil, rimage.ErrEmptyImage
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	blurred := BlurredLuminance(img, cfg.SigmaBlur)
	features := make([]*Feature, 0, len(corners))
	for _, p := range corners {
		d, err := ComputeDescriptor(blurred, p, cfg.Radius)
		if err != nil {
			if cfg.SkipDegenerate && errors.Is(err, ErrDegenerateDescriptor) {
				continue
			}
			return nil, err
		}
		features = append(features, NewFeature(p, d))
	}
	return features, nil
}
