package panorama

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"go.viam.com/panorama/rimage/transform"
	putils "go.viam.com/panorama/utils"
	"go.viam.com/panorama/vision/keypoints"
)

// a homography is pinned down by four point pairs.
const minimalSampleSize = 4

var (
	// ErrNoCorrespondences is returned when RANSAC is handed an empty correspondence set.
	ErrNoCorrespondences = errors.New("no correspondences to estimate a homography from")
	// ErrInsufficientCorrespondences is returned when there are fewer than four correspondences.
	ErrInsufficientCorrespondences = errors.New("not enough correspondences to estimate a homography")
	// ErrInvalidConfig is returned when a configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InlierScope selects which correspondences a RANSAC trial is scored against.
type InlierScope string

const (
	// InlierScopeFull scores every trial against all correspondences.
	InlierScopeFull InlierScope = "full"
	// InlierScopeSample scores a trial against the four pairs it was fitted on only.
	InlierScopeSample InlierScope = "sample"
)

// RANSACConfig contains the parameters of the homography estimator.
type RANSACConfig struct {
	NIter       int         `json:"n_iter"`
	Epsilon     float64     `json:"epsilon"`
	InlierScope InlierScope `json:"inlier_scope"`
}

// DefaultRANSACConfig returns the estimator parameters used by the stitcher.
func DefaultRANSACConfig() *RANSACConfig {
	return &RANSACConfig{NIter: 500, Epsilon: 4, InlierScope: InlierScopeFull}
}

func (config *RANSACConfig) check() error {
	if config.NIter < 1 {
		return errors.Wrap(ErrInvalidConfig, "n_iter should be >= 1")
	}
	if !(config.Epsilon > 0) {
		return errors.Wrap(ErrInvalidConfig, "epsilon should be > 0")
	}
	switch config.InlierScope {
	case "", InlierScopeFull, InlierScopeSample:
	default:
		return errors.Wrapf(ErrInvalidConfig, "inlier_scope should be %q or %q, got %q", InlierScopeFull, InlierScopeSample, config.InlierScope)
	}
	return nil
}

// Validate ensures all parts of the RANSACConfig are valid.
func (config *RANSACConfig) Validate(path string) error {
	if err := config.check(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// RANSACResult is the outcome of a RANSAC run.
type RANSACResult struct {
	// Homography maps points of the first image onto the second. It is the identity when no
	// trial found a single inlier.
	Homography *transform.Homography
	// Inliers flags, for every correspondence, whether Homography maps it within epsilon.
	Inliers     []bool
	InlierCount int
	// BestScore is the score of the winning trial under the configured scope.
	BestScore        int
	Iterations       int
	DegenerateTrials int
}

// RANSAC estimates the homography mapping the first feature of every correspondence onto the
// second. Each iteration fits a homography to four distinct correspondences drawn with rng and
// scores it; a later trial replaces the best one when it scores at least as many inliers.
// Trials whose four pairs are degenerate score nothing. corrs is never modified.
func RANSAC(corrs []keypoints.FeatureCorrespondence, cfg *RANSACConfig, rng *rand.Rand) (*RANSACResult, error) {
	if cfg == nil {
		cfg = DefaultRANSACConfig()
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if len(corrs) == 0 {
		return nil, ErrNoCorrespondences
	}
	if len(corrs) < minimalSampleSize {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "have %d, need %d", len(corrs), minimalSampleSize)
	}
	if rng == nil {
		return nil, errors.New("RANSAC needs a random source")
	}

	pairs := lo.Map(corrs, func(c keypoints.FeatureCorrespondence, _ int) transform.PointPair {
		return c.PointPair()
	})
	indices := lo.Range(len(pairs))

	result := &RANSACResult{Homography: transform.IdentityHomography(), Iterations: cfg.NIter}
	var sample [minimalSampleSize]transform.PointPair
	for iter := 0; iter < cfg.NIter; iter++ {
		drawSample(indices, rng)
		for i := range sample {
			sample[i] = pairs[indices[i]]
		}
		h, err := transform.ComputeHomography(sample)
		if err != nil || h.IsSingular() {
			// absorbed: the identity stands in and scores nothing
			result.DegenerateTrials++
			continue
		}
		scored := pairs
		if cfg.InlierScope == InlierScopeSample {
			scored = sample[:]
		}
		count := countPairInliers(h, scored, cfg.Epsilon)
		if count > 0 && count >= result.BestScore {
			result.Homography = h
			result.BestScore = count
		}
	}
	result.Inliers = pairInliers(result.Homography, pairs, cfg.Epsilon)
	result.InlierCount = CountInliers(result.Inliers)
	return result, nil
}

// drawSample moves minimalSampleSize distinct uniformly drawn indices to the front of indices
// with a partial Fisher-Yates shuffle.
func drawSample(indices []int, rng *rand.Rand) {
	n := len(indices)
	for i := 0; i < minimalSampleSize; i++ {
		j := putils.SampleRandomIntRange(i, n-1, rng)
		indices[i], indices[j] = indices[j], indices[i]
	}
}

// isInlier reports whether h maps pair.P1 within epsilon of pair.P2. The distance is measured
// after dehomogenizing, so it is in pixels and does not depend on the scale of h.
func isInlier(h *transform.Homography, pair transform.PointPair, epsilon float64) bool {
	return h.Apply(pair.P1).Sub(pair.P2).Norm() < epsilon
}

func pairInliers(h *transform.Homography, pairs []transform.PointPair, epsilon float64) []bool {
	return lo.Map(pairs, func(p transform.PointPair, _ int) bool {
		return isInlier(h, p, epsilon)
	})
}

func countPairInliers(h *transform.Homography, pairs []transform.PointPair, epsilon float64) int {
	return lo.CountBy(pairs, func(p transform.PointPair) bool {
		return isInlier(h, p, epsilon)
	})
}

// Inliers flags the correspondences that h maps within epsilon pixels.
func Inliers(h *transform.Homography, corrs []keypoints.FeatureCorrespondence, epsilon float64) []bool {
	return lo.Map(corrs, func(c keypoints.FeatureCorrespondence, _ int) bool {
		return isInlier(h, c.PointPair(), epsilon)
	})
}

// CountInliers counts the set flags of an inlier mask.
func CountInliers(mask []bool) int {
	return lo.Count(mask, true)
}

// Residuals returns the reprojection error of every correspondence under h.
func Residuals(h *transform.Homography, corrs []keypoints.FeatureCorrespondence) []float64 {
	return lo.Map(corrs, func(c keypoints.FeatureCorrespondence, _ int) float64 {
		pair := c.PointPair()
		d := h.Apply(pair.P1).Sub(pair.P2).Norm()
		if math.IsNaN(d) {
			return math.Inf(1)
		}
		return d
	})
}
