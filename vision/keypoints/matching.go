package keypoints

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/panorama/rimage/transform"
	putils "go.viam.com/panorama/utils"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	// Threshold is compared against sqrt(second best distance / best distance); larger values
	// keep fewer, less ambiguous matches.
	Threshold float64 `json:"threshold"`
}

// DefaultMatchingConfig returns the matching parameters used by the stitcher.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{Threshold: 1.0}
}

// Validate ensures all parts of the MatchingConfig are valid.
func (config *MatchingConfig) Validate(path string) error {
	if config.Threshold < 0 || math.IsNaN(config.Threshold) {
		return utils.NewConfigValidationError(path, errors.New("threshold should be >= 0"))
	}
	return nil
}

// FeatureCorrespondence pairs a feature of the first image with its match in the second.
type FeatureCorrespondence struct {
	f1 *Feature
	f2 *Feature
}

// NewFeatureCorrespondence pairs f1 from the first image with f2 from the second.
func NewFeatureCorrespondence(f1, f2 *Feature) FeatureCorrespondence {
	return FeatureCorrespondence{f1: f1, f2: f2}
}

// Feature returns the first (i == 0) or the second (i == 1) feature.
func (fc FeatureCorrespondence) Feature(i int) *Feature {
	if i == 0 {
		return fc.f1
	}
	return fc.f2
}

// PointPair returns the two feature locations.
func (fc FeatureCorrespondence) PointPair() transform.PointPair {
	return transform.PointPair{P1: transform.ToR2(fc.f1.point), P2: transform.ToR2(fc.f2.point)}
}

func (fc FeatureCorrespondence) String() string {
	return fmt.Sprintf("%v -> %v", fc.f1.point, fc.f2.point)
}

// DescriptorDistance is the sum of squared differences between two descriptors of equal size.
func DescriptorDistance(d1, d2 *Descriptor) (float64, error) {
	if len(d1.data) != len(d2.data) {
		return 0, errors.Errorf("descriptors have different sizes: %d vs %d", len(d1.data), len(d2.data))
	}
	dist := 0.
	for i, v := range d1.data {
		dist += putils.Square(v - d2.data[i])
	}
	return dist, nil
}

// distanceRatio is second/best with the conventions 0/0 = 1 and x/0 = +Inf.
func distanceRatio(second, best float64) float64 {
	switch {
	case second == best:
		return 1
	case best == 0:
		return math.Inf(1)
	default:
		return second / best
	}
}

type nearestNeighbors struct {
	best           int
	bestDist       float64
	secondBestDist float64
	err            error
}

// FindCorrespondences matches every feature of features1 to its nearest neighbor in features2
// and keeps the match when secondBestDistance/bestDistance >= threshold². When features2 has a
// single feature, the missing second best counts as infinitely far. Ties go to the feature
// scanned first. The result is ordered like features1 and a feature of features2 may be used
// more than once.
func FindCorrespondences(features1, features2 []*Feature, threshold float64) ([]FeatureCorrespondence, error) {
	corrs := make([]FeatureCorrespondence, 0, len(features1))
	if len(features1) == 0 || len(features2) == 0 {
		return corrs, nil
	}
	thresholdSquared := threshold * threshold
	neighbors := make([]nearestNeighbors, len(features1))
	err := putils.GroupWorkParallel(context.Background(), len(features1), func(_, _, _, _ int) putils.MemberWorkFunc {
		return func(_, i int) {
			neighbors[i] = findNearestNeighbors(features1[i], features2)
		}
	})
	if err != nil {
		return nil, err
	}
	for i, nn := range neighbors {
		if nn.err != nil {
			return nil, nn.err
		}
		if nn.best < 0 {
			continue
		}
		if distanceRatio(nn.secondBestDist, nn.bestDist) >= thresholdSquared {
			corrs = append(corrs, NewFeatureCorrespondence(features1[i], features2[nn.best]))
		}
	}
	return corrs, nil
}

func findNearestNeighbors(f *Feature, candidates []*Feature) nearestNeighbors {
	nn := nearestNeighbors{best: -1, bestDist: math.Inf(1), secondBestDist: math.Inf(1)}
	for j, candidate := range candidates {
		d, err := DescriptorDistance(f.descriptor, candidate.descriptor)
		if err != nil {
			nn.err = err
			return nn
		}
		if d < nn.bestDist {
			nn.secondBestDist = nn.bestDist
			nn.bestDist = d
			nn.best = j
		} else if d < nn.secondBestDist {
			nn.secondBestDist = d
		}
	}
	return nn
}

// GetMatchingKeyPoints returns the locations of the matched features in each image.
func GetMatchingKeyPoints(corrs []FeatureCorrespondence) (KeyPoints, KeyPoints) {
	matchedKps1 := make(KeyPoints, len(corrs))
	matchedKps2 := make(KeyPoints, len(corrs))
	for i, c := range corrs {
		matchedKps1[i] = c.f1.point
		matchedKps2[i] = c.f2.point
	}
	return matchedKps1, matchedKps2
}
