package visualekf

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// QuatNormTol bounds how far from unit norm an input orientation may drift
// before the predictor rejects it. Repeated closed-form updates with
// renormalization disabled accumulate drift; past this tolerance the caller
// must re-unitize before predicting again.
const QuatNormTol = 1e-6

var (
	// ErrNonPositiveStep is returned when dt is zero, negative or NaN.
	ErrNonPositiveStep = errors.New("time step must be strictly positive")
	// ErrNotFinite is returned when a state or measurement component is NaN or infinite.
	ErrNotFinite = errors.New("component is not finite")
	// ErrNotUnitQuaternion is returned when an orientation is off unit norm beyond QuatNormTol.
	ErrNotUnitQuaternion = errors.New("quaternion is not unit norm")
	// ErrSchemaMismatch is returned when a state does not carry the sub-blocks its schema requires.
	ErrSchemaMismatch = errors.New("state does not match filter schema")
)

// IntegrationError reports that the adaptive integrator gave up before
// reaching the end of the interval. It carries the last time an accepted
// step reached and the normalized error estimate of the final attempt, so
// the caller can tell a stiff input apart from a tolerance set too tight.
type IntegrationError struct {
	Steps         int     // step attempts consumed
	T             float64 // last time reached by an accepted step
	ErrorEstimate float64 // normalized error estimate of the final attempt
}

func (e IntegrationError) Error() string {
	return fmt.Sprintf("integration diverged after %d steps at t=%g (error estimate %g)", e.Steps, e.T, e.ErrorEstimate)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// checkVecDims checks that v is a non-nil n-vector. Returns an error if not.
func checkVecDims(v *mat.VecDense, name string, n int) error {
	if v == nil || v.Len() != n {
		return errors.Wrapf(ErrSchemaMismatch, "%s must be a %d-vector", name, n)
	}
	return nil
}

// checkFinite checks every component of v for NaN and Inf.
func checkFinite(v *mat.VecDense, name string) error {
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); !isFinite(x) {
			return errors.Wrapf(ErrNotFinite, "%s[%d] = %v", name, i, x)
		}
	}
	return nil
}

// checkUnitQuat checks that q is finite and unit norm within QuatNormTol.
func checkUnitQuat(q quat.Number, name string) error {
	if !isFinite(q.Real) || !isFinite(q.Imag) || !isFinite(q.Jmag) || !isFinite(q.Kmag) {
		return errors.Wrapf(ErrNotFinite, "%s = %v", name, q)
	}
	if n := quat.Abs(q); math.Abs(n-1) > QuatNormTol {
		return errors.Wrapf(ErrNotUnitQuaternion, "%s has norm %v", name, n)
	}
	return nil
}
