package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/panorama/rimage"
	putils "go.viam.com/panorama/utils"
)

// HarrisConfig contains the parameters of the Harris corner detector.
type HarrisConfig struct {
	// K weighs the squared trace against the determinant of the structure tensor.
	K float64 `json:"k"`
	// SigmaG is the blur applied to the luminance before taking gradients.
	SigmaG float64 `json:"sigma_g"`
	// FactorSigma scales SigmaG into the window over which gradient products are summed.
	FactorSigma  float64 `json:"factor_sigma"`
	MaxiDiam     int     `json:"maxi_diam"`
	BoundarySize int     `json:"boundary_size"`
}

// DefaultHarrisConfig returns the detector parameters used by the stitcher.
func DefaultHarrisConfig() *HarrisConfig {
	return &HarrisConfig{
		K:            0.15,
		SigmaG:       1,
		FactorSigma:  4,
		MaxiDiam:     7,
		BoundarySize: 5,
	}
}

// LoadHarrisConfiguration loads a HarrisConfig from a json file. Fields missing from the
// file keep their default values.
func LoadHarrisConfiguration(file string) (*HarrisConfig, error) {
	config := DefaultHarrisConfig()
	configFile, err := os.Open(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(configFile.Close)
	if err := json.NewDecoder(configFile).Decode(config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode harris config %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate ensures all parts of the HarrisConfig are valid.
func (config *HarrisConfig) Validate(path string) error {
	if config.SigmaG < 0 {
		return utils.NewConfigValidationError(path, errors.New("sigma_g should be >= 0"))
	}
	if config.FactorSigma < 0 {
		return utils.NewConfigValidationError(path, errors.New("factor_sigma should be >= 0"))
	}
	if config.MaxiDiam < 1 {
		return utils.NewConfigValidationError(path, errors.New("maxi_diam should be >= 1"))
	}
	if config.BoundarySize < 0 {
		return utils.NewConfigValidationError(path, errors.New("boundary_size should be >= 0"))
	}
	return nil
}

// StructureTensor holds the locally summed gradient products Ix², IxIy and Iy² of an image.
type StructureTensor struct {
	field *rimage.FloatImage
}

// ComputeStructureTensor computes the structure tensor of the luminance of img. The luminance
// is blurred with sigmaG before differentiation, and the gradient products are blurred with
// sigmaG*factorSigma.
func ComputeStructureTensor(img *rimage.FloatImage, sigmaG, factorSigma float64) (*StructureTensor, error) {
	if img == nil || img.Empty() {
		return nil, rimage.ErrEmptyImage
	}
	blurred := rimage.GaussianBlur(rimage.Luminance(img), sigmaG)
	ix, iy := rimage.GradientX(blurred), rimage.GradientY(blurred)

	products := rimage.NewFloatImage(img.Width(), img.Height(), 3)
	putils.ParallelForEachPixel(img.Bounds().Size(), func(x, y int) {
		gx, gy := ix.At(x, y, 0), iy.At(x, y, 0)
		products.Set(x, y, 0, gx*gx)
		products.Set(x, y, 1, gx*gy)
		products.Set(x, y, 2, gy*gy)
	})
	return &StructureTensor{rimage.GaussianBlur(products, sigmaG*factorSigma)}, nil
}

// Width of the underlying image.
func (st *StructureTensor) Width() int {
	return st.field.Width()
}

// Height of the underlying image.
func (st *StructureTensor) Height() int {
	return st.field.Height()
}

// Components returns the three distinct entries of the tensor at (x, y).
func (st *StructureTensor) Components(x, y int) (ixx, ixy, iyy float64) {
	return st.field.At(x, y, 0), st.field.At(x, y, 1), st.field.At(x, y, 2)
}

// CornerResponse scores every pixel with det(M) - k*tr(M)² and clamps negative scores to 0.
func (st *StructureTensor) CornerResponse(k float64) *CornerResponse {
	scores := rimage.NewFloatImage(st.Width(), st.Height(), 1)
	putils.ParallelForEachPixel(image.Point{st.Width(), st.Height()}, func(x, y int) {
		ixx, ixy, iyy := st.Components(x, y)
		r := ixx*iyy - ixy*ixy - k*putils.Square(ixx+iyy)
		if r > 0 {
			scores.Set(x, y, 0, r)
		}
	})
	return &CornerResponse{scores}
}

// CornerResponse is a per pixel cornerness score. Every score is >= 0; pixels with a
// positive score are corner candidates.
type CornerResponse struct {
	scores *rimage.FloatImage
}

// NewCornerResponse wraps precomputed scores, clamping negative ones to 0. Only channel 0 is used.
func NewCornerResponse(scores *rimage.FloatImage) *CornerResponse {
	clamped := scores.Channel(0)
	putils.ParallelForEachPixel(clamped.Bounds().Size(), func(x, y int) {
		if clamped.At(x, y, 0) < 0 {
			clamped.Set(x, y, 0, 0)
		}
	})
	return &CornerResponse{clamped}
}

// ComputeCornerResponse runs the structure tensor and scoring stages on img.
func ComputeCornerResponse(img *rimage.FloatImage, cfg *HarrisConfig) (*CornerResponse, error) {
	st, err := ComputeStructureTensor(img, cfg.SigmaG, cfg.FactorSigma)
	if err != nil {
		return nil, err
	}
	return st.CornerResponse(cfg.K), nil
}

// Width of the response map.
func (cr *CornerResponse) Width() int {
	return cr.scores.Width()
}

// Height of the response map.
func (cr *CornerResponse) Height() int {
	return cr.scores.Height()
}

// Score returns the score at (x, y); ok is false outside the map.
func (cr *CornerResponse) Score(x, y int) (float64, bool) {
	if !cr.scores.In(x, y) {
		return 0, false
	}
	return cr.scores.At(x, y, 0), true
}

// IsCandidate reports whether (x, y) has a positive score.
func (cr *CornerResponse) IsCandidate(x, y int) bool {
	s, ok := cr.Score(x, y)
	return ok && s > 0
}

// Image returns a copy of the scores as a single channel image.
func (cr *CornerResponse) Image() *rimage.FloatImage {
	return cr.scores.Clone()
}

// LocalMaxima returns the candidates whose score equals the maximum of the maxiDiam window
// around them and that lie strictly more than boundarySize pixels from every image edge.
// Corners come out in row major order; plateaus of equal maxima all survive.
func (cr *CornerResponse) LocalMaxima(maxiDiam, boundarySize int) KeyPoints {
	maxed := rimage.MaximumFilter(cr.scores, maxiDiam)
	corners := make(KeyPoints, 0)
	for y := boundarySize + 1; y < cr.Height()-1-boundarySize; y++ {
		for x := boundarySize + 1; x < cr.Width()-1-boundarySize; x++ {
			m := maxed.At(x, y, 0)
			if m > 0 && cr.scores.At(x, y, 0) == m {
				corners = append(corners, image.Point{x, y})
			}
		}
	}
	return corners
}

// HarrisCorners detects corners in img.
func HarrisCorners(img *rimage.FloatImage, cfg *HarrisConfig) (KeyPoints, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	response, err := ComputeCornerResponse(img, cfg)
	if err != nil {
		return nil, err
	}
	return response.LocalMaxima(cfg.MaxiDiam, cfg.BoundarySize), nil
}
