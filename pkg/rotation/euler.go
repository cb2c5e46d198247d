// Package rotation builds the 3x3 rotation matrices that describe one
// candidate orientation of a reference.
package rotation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Euler returns the ZYZ rotation matrix for the angles rot, tilt and psi,
// given in degrees.
func Euler(rot, tilt, psi float64) *mat.Dense {
	alpha := rot * math.Pi / 180
	beta := tilt * math.Pi / 180
	gamma := psi * math.Pi / 180

	sa, ca := math.Sincos(alpha)
	sb, cb := math.Sincos(beta)
	sg, cg := math.Sincos(gamma)

	cc := cb * ca
	cs := cb * sa
	sc := sb * ca
	ss := sb * sa

	return mat.NewDense(3, 3, []float64{
		cg*cc - sg*sa, cg*cs + sg*ca, -cg * sb,
		-sg*cc - cg*sa, -sg*cs + cg*ca, sg * sb,
		sc, ss, cb,
	})
}

// InPlane returns the rotation about z by psi degrees. The upper-left 2x2
// block is what a planar reference needs.
func InPlane(psi float64) *mat.Dense {
	return Euler(0, 0, psi)
}

// Flatten copies a 3x3 matrix into row-major order.
func Flatten(m mat.Matrix) [9]float64 {
	var e [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			e[i*3+j] = m.At(i, j)
		}
	}
	return e
}

// IsRotation reports whether m is orthonormal with determinant +1 within tol.
func IsRotation(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != 3 || c != 3 {
		return false
	}
	var prod mat.Dense
	prod.Mul(m.T(), m)
	if !mat.EqualApprox(&prod, eye(), tol) {
		return false
	}
	return math.Abs(mat.Det(m)-1) <= tol
}

// Distance returns the rotation angle in degrees between a and b.
func Distance(a, b mat.Matrix) float64 {
	var rel mat.Dense
	rel.Mul(a.T(), b)
	tr := mat.Trace(&rel)
	cos := math.Max(-1, math.Min(1, (tr-1)/2))
	return math.Acos(cos) * 180 / math.Pi
}

func eye() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
