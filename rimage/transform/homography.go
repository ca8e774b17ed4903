// Package transform holds planar projective transforms and the warps that apply them to images.
package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateHomography is returned when point pairs do not determine a unique invertible homography.
var ErrDegenerateHomography = errors.New("homography is degenerate")

// Homography is a 3x3 matrix used to transform a plane from the perspective of one 2D camera
// to the perspective of another. Points are column vectors (x, y, 1).
type Homography struct {
	matrix *mat.Dense
}

// NewHomography builds a homography from its 9 entries in row major order.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return &Homography{mat.NewDense(3, 3, data)}, nil
}

// IdentityHomography returns the homography that leaves every point in place.
func IdentityHomography() *Homography {
	return &Homography{eye(3)}
}

// Translation returns the homography that moves every point by (tx, ty).
func Translation(tx, ty float64) *Homography {
	return &Homography{mat.NewDense(3, 3, []float64{1, 0, tx, 0, 1, ty, 0, 0, 1})}
}

// Scaling returns the homography that multiplies both coordinates by s.
func Scaling(s float64) *Homography {
	return &Homography{mat.NewDense(3, 3, []float64{s, 0, 0, 0, s, 0, 0, 0, 1})}
}

// At returns the entry at (row, col).
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Values returns the 9 entries in row major order.
func (h *Homography) Values() []float64 {
	vals := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		vals = append(vals, h.matrix.RawRowView(r)...)
	}
	return vals
}

// Matrix returns a copy of the underlying matrix.
func (h *Homography) Matrix() *mat.Dense {
	return mat.DenseCopyOf(h.matrix)
}

// Det returns the determinant.
func (h *Homography) Det() float64 {
	return mat.Det(h.matrix)
}

// IsSingular reports whether the matrix has a zero determinant.
func (h *Homography) IsSingular() bool {
	return h.Det() == 0
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, err.Error())
	}
	return &Homography{&inv}, nil
}

// Compose returns h * other, the homography applying other first and h second.
func (h *Homography) Compose(other *Homography) *Homography {
	var out mat.Dense
	out.Mul(h.matrix, other.matrix)
	return &Homography{&out}
}

// Normalized returns the homography scaled so that entry (2, 2) is 1. It is returned
// unchanged when that entry is 0.
func (h *Homography) Normalized() *Homography {
	w := h.At(2, 2)
	if w == 0 {
		return &Homography{mat.DenseCopyOf(h.matrix)}
	}
	var out mat.Dense
	out.Scale(1/w, h.matrix)
	return &Homography{&out}
}

// ApplyHomogeneous multiplies the matrix with a homogeneous point.
func (h *Homography) ApplyHomogeneous(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: h.At(0, 0)*v.X + h.At(0, 1)*v.Y + h.At(0, 2)*v.Z,
		Y: h.At(1, 0)*v.X + h.At(1, 1)*v.Y + h.At(1, 2)*v.Z,
		Z: h.At(2, 0)*v.X + h.At(2, 1)*v.Y + h.At(2, 2)*v.Z,
	}
}

// Apply maps a point and divides by the homogeneous coordinate. Points sent to infinity come
// back with infinite coordinates.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	v := h.ApplyHomogeneous(r3.Vector{X: pt.X, Y: pt.Y, Z: 1})
	if v.Z == 0 {
		return r2.Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}
}

func (h *Homography) String() string {
	return fmt.Sprintf("[%.6g %.6g %.6g; %.6g %.6g %.6g; %.6g %.6g %.6g]",
		h.At(0, 0), h.At(0, 1), h.At(0, 2),
		h.At(1, 0), h.At(1, 1), h.At(1, 2),
		h.At(2, 0), h.At(2, 1), h.At(2, 2))
}

// Homogeneous lifts a pixel coordinate to (x, y, 1).
func Homogeneous(p image.Point) r3.Vector {
	return r3.Vector{X: float64(p.X), Y: float64(p.Y), Z: 1}
}

// ToR2 converts a pixel coordinate to a real-valued point.
func ToR2(p image.Point) r2.Point {
	return r2.Point{X: float64(p.X), Y: float64(p.Y)}
}

// PointPair is a point in the first image and the point it corresponds to in the second.
type PointPair struct {
	P1 r2.Point
	P2 r2.Point
}

// ComputeHomography fits the homography H with H*P1 ~ P2 for four point pairs. It returns
// ErrDegenerateHomography when the pairs do not pin down a unique invertible H, for instance
// when three of the points are collinear.
func ComputeHomography(pairs [4]PointPair) (*Homography, error) {
	src := make([]r2.Point, len(pairs))
	dst := make([]r2.Point, len(pairs))
	for i, p := range pairs {
		src[i], dst[i] = p.P1, p.P2
	}
	h, err := directLinearTransform(src, dst)
	if err != nil {
		return nil, err
	}
	if !isFiniteMatrix(h.matrix) || h.IsSingular() {
		return nil, ErrDegenerateHomography
	}
	return h, nil
}

func isFiniteMatrix(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
