package visualekf

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Rotate applies the rotation q to the 3-vector v, computing q*(0,v)*q⁻¹
// for unit q. A body-to-world quaternion therefore maps body-frame vectors
// into the world frame.
func Rotate(q quat.Number, v *mat.VecDense) *mat.VecDense {
	r := quat.Mul(quat.Mul(q, pure(v)), quat.Conj(q))
	return mat.NewVecDense(3, []float64{r.Imag, r.Jmag, r.Kmag})
}

// RotateInv applies the inverse of the rotation q to v.
func RotateInv(q quat.Number, v *mat.VecDense) *mat.VecDense {
	return Rotate(quat.Conj(q), v)
}

// ExpMap is the exponential map from so(3) to SO(3): it returns the unit
// quaternion rotating by angle dt*|omega| about the omega axis, i.e. the
// exact attitude increment for a constant angular velocity held over dt.
func ExpMap(omega *mat.VecDense, dt float64) quat.Number {
	h := 0.5 * dt
	return quat.Exp(quat.Number{
		Imag: h * omega.AtVec(0),
		Jmag: h * omega.AtVec(1),
		Kmag: h * omega.AtVec(2),
	})
}

// Normalize re-unitizes q. A zero quaternion maps to the identity rotation.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func pure(v *mat.VecDense) quat.Number {
	return quat.Number{Imag: v.AtVec(0), Jmag: v.AtVec(1), Kmag: v.AtVec(2)}
}
