package visualekf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrateExponentialDecay(t *testing.T) {
	var rk DormandPrince
	y, err := rk.Integrate([]float64{1}, 0, 1, func(t float64, y, dydt []float64) {
		dydt[0] = -y[0]
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-1), y[0], 1e-6)
}

func TestIntegrateHarmonicOscillator(t *testing.T) {
	rk := DormandPrince{AbsTol: 1e-10, RelTol: 1e-9}
	// One full period brings the oscillator back to its initial condition.
	y, err := rk.Integrate([]float64{1, 0}, 0, 2*math.Pi, func(t float64, y, dydt []float64) {
		dydt[0] = y[1]
		dydt[1] = -y[0]
	})
	require.NoError(t, err)
	assert.InDelta(t, 1, y[0], 1e-6)
	assert.InDelta(t, 0, y[1], 1e-6)
}

func TestIntegrateDoesNotMutateInput(t *testing.T) {
	var rk DormandPrince
	y0 := []float64{2}
	_, err := rk.Integrate(y0, 0, 1, func(t float64, y, dydt []float64) {
		dydt[0] = y[0]
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, y0[0])
}

func TestIntegrateDivergenceDiagnostic(t *testing.T) {
	var rk DormandPrince
	// y' = y^2 with y(0)=1 blows up at t=1; asking for t=2 must fail with a
	// diagnostic rather than a silent truncation.
	_, err := rk.Integrate([]float64{1}, 0, 2, func(t float64, y, dydt []float64) {
		dydt[0] = y[0] * y[0]
	})
	require.Error(t, err)
	var ie IntegrationError
	require.ErrorAs(t, err, &ie)
	assert.Greater(t, ie.Steps, 0)
	assert.Less(t, ie.T, 2.0)
}

func TestIntegrateMaxSteps(t *testing.T) {
	rk := DormandPrince{RelTol: 1e-12, AbsTol: 1e-14, MaxSteps: 3}
	_, err := rk.Integrate([]float64{1, 0}, 0, 100, func(t float64, y, dydt []float64) {
		dydt[0] = y[1]
		dydt[1] = -y[0]
	})
	var ie IntegrationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 3, ie.Steps)
}
