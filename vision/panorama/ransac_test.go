package panorama

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/panorama/rimage/transform"
	"go.viam.com/panorama/vision/keypoints"
)

func pointFeature(t *testing.T, p image.Point) *keypoints.Feature {
	t.Helper()
	d, err := keypoints.NewDescriptor(0, []float64{0})
	test.That(t, err, test.ShouldBeNil)
	return keypoints.NewFeature(p, d)
}

func correspondence(t *testing.T, p1, p2 image.Point) keypoints.FeatureCorrespondence {
	t.Helper()
	return keypoints.NewFeatureCorrespondence(pointFeature(t, p1), pointFeature(t, p2))
}

// rotationHomography rotates by 90 degrees, scales by 2 and translates by (80, 10).
func rotationHomography(t *testing.T) *transform.Homography {
	t.Helper()
	h, err := transform.NewHomography([]float64{0, -2, 80, 2, 0, 10, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	return h
}

// mappedCorrespondences returns n correspondences between random points and their exact image
// under h.
func mappedCorrespondences(t *testing.T, h *transform.Homography, n int, seed int64) []keypoints.FeatureCorrespondence {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	corrs := make([]keypoints.FeatureCorrespondence, 0, n)
	for i := 0; i < n; i++ {
		p := image.Pt(r.Intn(100), r.Intn(100))
		q := h.Apply(r2.Point{X: float64(p.X), Y: float64(p.Y)})
		corrs = append(corrs, correspondence(t, p, image.Pt(int(math.Round(q.X)), int(math.Round(q.Y)))))
	}
	return corrs
}

func TestRANSACNoiseless(t *testing.T) {
	h0 := rotationHomography(t)
	corrs := mappedCorrespondences(t, h0, 30, 7)
	cfg := &RANSACConfig{NIter: 100, Epsilon: 1, InlierScope: InlierScopeFull}
	for seed := int64(0); seed < 5; seed++ {
		result, err := RANSAC(corrs, cfg, rand.New(rand.NewSource(seed)))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, result.InlierCount, test.ShouldEqual, len(corrs))
		test.That(t, result.BestScore, test.ShouldEqual, len(corrs))
		test.That(t, result.Iterations, test.ShouldEqual, 100)
		test.That(t, result.Inliers, test.ShouldHaveLength, len(corrs))
		for _, p := range []r2.Point{{X: 0, Y: 0}, {X: 50, Y: 20}, {X: 99, Y: 99}} {
			got, want := result.Homography.Apply(p), h0.Apply(p)
			test.That(t, got.X, test.ShouldAlmostEqual, want.X, 1e-3)
			test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 1e-3)
		}
	}
}

func TestRANSACOutliers(t *testing.T) {
	h0 := rotationHomography(t)
	corrs := mappedCorrespondences(t, h0, 20, 11)
	for i := 0; i < 6; i++ {
		corrs = append(corrs, correspondence(t, image.Pt(10*i, 5*i), image.Pt(500+37*i, 400-23*i)))
	}
	result, err := RANSAC(corrs, DefaultRANSACConfig(), rand.New(rand.NewSource(3)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.InlierCount, test.ShouldEqual, 20)
	for i, inlier := range result.Inliers {
		test.That(t, inlier, test.ShouldEqual, i < 20)
	}
	test.That(t, CountInliers(Inliers(h0, corrs, 4)), test.ShouldEqual, 20)

	residuals := Residuals(result.Homography, corrs)
	test.That(t, residuals, test.ShouldHaveLength, len(corrs))
	test.That(t, residuals[0], test.ShouldBeLessThan, 1.)
	test.That(t, residuals[len(residuals)-1], test.ShouldBeGreaterThan, 4.)
}

func TestRANSACDeterministic(t *testing.T) {
	corrs := mappedCorrespondences(t, rotationHomography(t), 15, 5)
	for i := 0; i < 5; i++ {
		corrs = append(corrs, correspondence(t, image.Pt(3*i, 7*i), image.Pt(200-9*i, 11*i)))
	}
	cfg := &RANSACConfig{NIter: 20, Epsilon: 2}
	first, err := RANSAC(corrs, cfg, rand.New(rand.NewSource(42)))
	test.That(t, err, test.ShouldBeNil)
	second, err := RANSAC(corrs, cfg, rand.New(rand.NewSource(42)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Homography.Values(), test.ShouldResemble, first.Homography.Values())
	test.That(t, second.Inliers, test.ShouldResemble, first.Inliers)
	test.That(t, second.DegenerateTrials, test.ShouldEqual, first.DegenerateTrials)
}

func TestRANSACSampleScope(t *testing.T) {
	corrs := mappedCorrespondences(t, rotationHomography(t), 25, 9)
	cfg := &RANSACConfig{NIter: 50, Epsilon: 1, InlierScope: InlierScopeSample}
	result, err := RANSAC(corrs, cfg, rand.New(rand.NewSource(1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.BestScore, test.ShouldBeLessThanOrEqualTo, 4)
	test.That(t, result.BestScore, test.ShouldBeGreaterThan, 0)
	// the final mask is always computed over every correspondence
	test.That(t, result.InlierCount, test.ShouldEqual, len(corrs))
}

func TestRANSACDegenerate(t *testing.T) {
	var corrs []keypoints.FeatureCorrespondence
	for i := 0; i < 6; i++ {
		corrs = append(corrs, correspondence(t, image.Pt(10*i, 0), image.Pt(10*i+100, 0)))
	}
	cfg := &RANSACConfig{NIter: 10, Epsilon: 1}
	result, err := RANSAC(corrs, cfg, rand.New(rand.NewSource(0)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.DegenerateTrials, test.ShouldEqual, 10)
	test.That(t, result.Homography.Values(), test.ShouldResemble, transform.IdentityHomography().Values())
	test.That(t, result.InlierCount, test.ShouldEqual, 0)
	test.That(t, result.BestScore, test.ShouldEqual, 0)
}

func TestRANSACErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	_, err := RANSAC(nil, nil, rng)
	test.That(t, errors.Is(err, ErrNoCorrespondences), test.ShouldBeTrue)

	corrs := mappedCorrespondences(t, rotationHomography(t), 3, 1)
	_, err = RANSAC(corrs, nil, rng)
	test.That(t, errors.Is(err, ErrInsufficientCorrespondences), test.ShouldBeTrue)

	corrs = mappedCorrespondences(t, rotationHomography(t), 8, 1)
	_, err = RANSAC(corrs, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	for _, cfg := range []*RANSACConfig{
		{NIter: 0, Epsilon: 1},
		{NIter: 10, Epsilon: 0},
		{NIter: 10, Epsilon: math.NaN()},
		{NIter: 10, Epsilon: 1, InlierScope: "half"},
	} {
		_, err := RANSAC(corrs, cfg, rng)
		test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
		test.That(t, cfg.Validate("ransac"), test.ShouldNotBeNil)
	}
	test.That(t, DefaultRANSACConfig().Validate("ransac"), test.ShouldBeNil)
}

func TestRANSACDoesNotModifyInput(t *testing.T) {
	corrs := mappedCorrespondences(t, rotationHomography(t), 10, 2)
	before := make([]string, len(corrs))
	for i, c := range corrs {
		before[i] = c.String()
	}
	_, err := RANSAC(corrs, nil, rand.New(rand.NewSource(4)))
	test.That(t, err, test.ShouldBeNil)
	for i, c := range corrs {
		test.That(t, c.String(), test.ShouldEqual, before[i])
	}
}

func TestInliersInPixels(t *testing.T) {
	corrs := []keypoints.FeatureCorrespondence{
		correspondence(t, image.Pt(5, 5), image.Pt(15, 5)),
		correspondence(t, image.Pt(40, 8), image.Pt(50, 9)),
		correspondence(t, image.Pt(0, 5), image.Pt(10, 5)),
	}
	translation := transform.Translation(10, 0)
	scaled, err := transform.NewHomography([]float64{2, 0, 20, 0, 2, 0, 0, 0, 2})
	test.That(t, err, test.ShouldBeNil)
	for _, h := range []*transform.Homography{translation, scaled} {
		test.That(t, Inliers(h, corrs, 1.5), test.ShouldResemble, []bool{true, true, true})
		test.That(t, Inliers(h, corrs, 1), test.ShouldResemble, []bool{true, false, true})
	}

	// x = 0 is sent to infinity and is never an inlier
	atInfinity, err := transform.NewHomography([]float64{1, 0, 10, 0, 1, 0, 1, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, Inliers(atInfinity, corrs, 1e9)[2], test.ShouldBeFalse)
}
