package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// relative size below which the smallest kept singular value means the system lost rank.
const rankTolerance = 1e-10

// directLinearTransform solves dst ~ H * src with the normalized DLT: both point sets are
// moved to their centroid and scaled to a mean distance of sqrt(2), the homography of the
// normalized points is the null vector of the stacked constraints, and it is mapped back.
func directLinearTransform(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) || len(src) < 4 {
		return nil, errors.Errorf("need at least 4 point pairs, got %d and %d points", len(src), len(dst))
	}
	srcNorm, t1, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstNorm, t2, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range srcNorm {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	svd := performSVD(a)
	if svd == nil {
		return nil, errors.Wrap(ErrDegenerateHomography, "svd did not converge")
	}
	// 8 independent constraints leave exactly one null direction
	values := svd.Values
	if len(values) < 8 || values[0] == 0 || values[7] <= rankTolerance*values[0] {
		return nil, ErrDegenerateHomography
	}
	hNorm := mat.NewDense(3, 3, mat.Col(nil, 8, svd.V))

	// H = T2^-1 * Hn * T1
	var t2Inv mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, err.Error())
	}
	var left, full mat.Dense
	left.Mul(&t2Inv, hNorm)
	full.Mul(&left, t1)
	if full.At(2, 2) == 0 {
		return nil, ErrDegenerateHomography
	}
	return (&Homography{&full}).Normalized(), nil
}

// normalizePoints moves pts to their centroid and scales them to a mean distance of sqrt(2).
// It returns the moved points and the transform that produced them.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil, nil, errors.Wrap(ErrDegenerateHomography, "points are coincident")
	}
	scale := math.Sqrt(2) / d
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, mat.NewDense(3, 3, transformData), nil
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the right singular vectors and the singular values of a decomposition.
type matsSVD struct {
	V      *mat.Dense
	Values []float64
}

// performSVD performs a full SVD on inputMatrix. It returns nil if the factorization failed.
func performSVD(inputMatrix *mat.Dense) *matsSVD {
	var svd mat.SVD
	if ok := svd.Factorize(inputMatrix, mat.SVDFull); !ok {
		return nil
	}
	v := &mat.Dense{}
	svd.VTo(v)
	return &matsSVD{V: v, Values: svd.Values(nil)}
}
