package keypoints

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

// scalarFeature is a feature with a single sample descriptor, so distances are (a-b)².
func scalarFeature(t *testing.T, x int, v float64) *Feature {
	t.Helper()
	d, err := NewDescriptor(0, []float64{v})
	test.That(t, err, test.ShouldBeNil)
	return NewFeature(image.Pt(x, 0), d)
}

func TestDescriptorDistance(t *testing.T) {
	d1, err := NewDescriptor(1, []float64{0, 0, 0, 0, 1, 0, 0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	d2, err := NewDescriptor(1, []float64{0, 0, 0, 0, -1, 0, 0, 2, 0})
	test.That(t, err, test.ShouldBeNil)
	dist, err := DescriptorDistance(d1, d2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldEqual, 8.)

	d3, err := NewDescriptor(0, []float64{1})
	test.That(t, err, test.ShouldBeNil)
	_, err = DescriptorDistance(d1, d3)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFindCorrespondencesDirectional(t *testing.T) {
	a1, a2 := scalarFeature(t, 1, 0), scalarFeature(t, 2, 0.1)
	b1 := scalarFeature(t, 10, 0)

	forward, err := FindCorrespondences([]*Feature{a1, a2}, []*Feature{b1}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, forward, test.ShouldHaveLength, 2)
	test.That(t, forward[0].Feature(0), test.ShouldEqual, a1)
	test.That(t, forward[1].Feature(0), test.ShouldEqual, a2)
	test.That(t, forward[1].Feature(1), test.ShouldEqual, b1)

	backward, err := FindCorrespondences([]*Feature{b1}, []*Feature{a1, a2}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, backward, test.ShouldHaveLength, 1)
	test.That(t, backward[0].Feature(1), test.ShouldEqual, a1)
	test.That(t, backward[0].String(), test.ShouldEqual, "(10,0) -> (1,0)")
}

func TestFindCorrespondencesRatio(t *testing.T) {
	a := scalarFeature(t, 0, 0)
	b1, b2 := scalarFeature(t, 1, 1), scalarFeature(t, 2, 2)

	// best 1, second best 4
	corrs, err := FindCorrespondences([]*Feature{a}, []*Feature{b1, b2}, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldHaveLength, 1)
	test.That(t, corrs[0].Feature(1), test.ShouldEqual, b1)
	test.That(t, corrs[0].PointPair().P2, test.ShouldResemble, r2.Point{X: 1, Y: 0})

	corrs, err = FindCorrespondences([]*Feature{a}, []*Feature{b1, b2}, 2.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldBeEmpty)

	// two exact matches: ratio 0/0 counts as 1 and the first one scanned wins
	twin1, twin2 := scalarFeature(t, 5, 0), scalarFeature(t, 6, 0)
	corrs, err = FindCorrespondences([]*Feature{a}, []*Feature{twin1, twin2}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldHaveLength, 1)
	test.That(t, corrs[0].Feature(1), test.ShouldEqual, twin1)
	corrs, err = FindCorrespondences([]*Feature{a}, []*Feature{twin1, twin2}, 1.01)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldBeEmpty)

	// one exact match and one distant: x/0 is infinite
	corrs, err = FindCorrespondences([]*Feature{a}, []*Feature{b2, twin2}, 1000)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldHaveLength, 1)
	test.That(t, corrs[0].Feature(1), test.ShouldEqual, twin2)
}

func TestFindCorrespondencesMonotonic(t *testing.T) {
	featuresA := []*Feature{scalarFeature(t, 0, 0), scalarFeature(t, 1, 5), scalarFeature(t, 2, 2.1), scalarFeature(t, 3, -1)}
	featuresB := []*Feature{scalarFeature(t, 0, 0.1), scalarFeature(t, 1, 0.3), scalarFeature(t, 2, 4), scalarFeature(t, 3, 2)}
	previous := len(featuresA) + 1
	for _, threshold := range []float64{0, 0.5, 1, 1.5, 2, 3, 5, 10} {
		corrs, err := FindCorrespondences(featuresA, featuresB, threshold)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(corrs), test.ShouldBeLessThanOrEqualTo, previous)
		previous = len(corrs)
	}
	all, err := FindCorrespondences(featuresA, featuresB, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all, test.ShouldHaveLength, len(featuresA))
	kps1, kps2 := GetMatchingKeyPoints(all)
	if diff := cmp.Diff(KeyPoints{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, kps1); diff != "" {
		t.Errorf("unexpected first points (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(KeyPoints{{0, 0}, {2, 0}, {3, 0}, {0, 0}}, kps2); diff != "" {
		t.Errorf("unexpected second points (-want +got):\n%s", diff)
	}
}

func TestFindCorrespondencesEmpty(t *testing.T) {
	a := scalarFeature(t, 0, 0)
	corrs, err := FindCorrespondences([]*Feature{a}, nil, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldBeEmpty)
	corrs, err = FindCorrespondences(nil, []*Feature{a}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corrs, test.ShouldBeEmpty)

	big, err := NewDescriptor(1, make([]float64, 9))
	test.That(t, err, test.ShouldBeNil)
	_, err = FindCorrespondences([]*Feature{a}, []*Feature{NewFeature(image.Pt(0, 0), big)}, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatchingConfig(t *testing.T) {
	test.That(t, DefaultMatchingConfig().Validate("matching"), test.ShouldBeNil)
	test.That(t, (&MatchingConfig{Threshold: -1}).Validate("matching"), test.ShouldNotBeNil)
	test.That(t, DefaultDescriptorConfig().Validate("descriptor"), test.ShouldBeNil)
	test.That(t, DefaultHarrisConfig().Validate("harris"), test.ShouldBeNil)
}
