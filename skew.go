package visualekf

import "gonum.org/v1/gonum/mat"

// Skew returns the skew-symmetric cross-product matrix of v, such that
// Skew(v)·u equals v × u for any 3-vector u. This is the so(3)
// representative of an angular velocity vector.
func Skew(v *mat.VecDense) *mat.Dense {
	x, y, z := v.AtVec(0), v.AtVec(1), v.AtVec(2)
	return mat.NewDense(3, 3, []float64{
		0, -z, y,
		z, 0, -x,
		-y, x, 0,
	})
}

// Identity returns an identity matrix of the provided size.
func Identity(n int) mat.Symmetric {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = 1
	}
	return mat.NewSymDense(n, vals)
}

// IsNil returns whether the provided matrix only has zero values.
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}
