package visualekf

import "math"

// RateFunc evaluates the time derivative of the flat state y into dydt.
// Both slices have the schema's Euclidean length; dydt is fully overwritten
// on every call.
type RateFunc func(t float64, y, dydt []float64)

// DormandPrince is an adaptive-step embedded Runge-Kutta 5(4) integrator
// (the Dormand-Prince pair). Steps are taken with the fifth-order solution;
// the embedded fourth-order solution drives the error estimate and step
// size control. Zero-valued fields fall back to the defaults below.
type DormandPrince struct {
	AbsTol   float64 // absolute tolerance per component (default 1e-9)
	RelTol   float64 // relative tolerance per component (default 1e-6)
	MaxSteps int     // step attempts before giving up (default 5000)
}

const (
	defaultAbsTol   = 1e-9
	defaultRelTol   = 1e-6
	defaultMaxSteps = 5000
)

// Dormand-Prince coefficients. The last stage row equals the fifth-order
// weights, so the final stage of an accepted step is the first stage of the
// next one (FSAL).
var (
	dpC = [7]float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	dpB5 = [7]float64{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84, 0}
	dpB4 = [7]float64{5179. / 57600, 0, 7571. / 16695, 393. / 640, -92097. / 339200, 187. / 2100, 1. / 40}
)

// Integrate propagates y0 from t0 to t1 under the rate function f and
// returns the state at t1. Only the endpoint is retained. y0 is not
// modified. On step-count exhaustion or a vanishing step size it returns an
// IntegrationError with the last good time and error estimate.
func (rk DormandPrince) Integrate(y0 []float64, t0, t1 float64, f RateFunc) ([]float64, error) {
	atol, rtol, maxSteps := rk.AbsTol, rk.RelTol, rk.MaxSteps
	if atol <= 0 {
		atol = defaultAbsTol
	}
	if rtol <= 0 {
		rtol = defaultRelTol
	}
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	n := len(y0)
	y := append([]float64(nil), y0...)
	yNext := make([]float64, n)
	yErr := make([]float64, n)
	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	stage := make([]float64, n)

	t := t0
	h := (t1 - t0) / 100
	var errNorm float64
	f(t, y, k[0])

	for steps := 0; steps < maxSteps; steps++ {
		if t+h > t1 {
			h = t1 - t
		}

		for s := 1; s < 7; s++ {
			for i := 0; i < n; i++ {
				acc := y[i]
				for j := 0; j < s; j++ {
					acc += h * dpA[s][j] * k[j][i]
				}
				stage[i] = acc
			}
			f(t+dpC[s]*h, stage, k[s])
		}

		for i := 0; i < n; i++ {
			var d5, d4 float64
			for s := 0; s < 7; s++ {
				d5 += dpB5[s] * k[s][i]
				d4 += dpB4[s] * k[s][i]
			}
			yNext[i] = y[i] + h*d5
			yErr[i] = h * (d5 - d4)
		}

		// Normalized RMS error against the mixed tolerance.
		errNorm = 0
		for i := 0; i < n; i++ {
			sc := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(yNext[i]))
			e := yErr[i] / sc
			errNorm += e * e
		}
		errNorm = math.Sqrt(errNorm / float64(n))

		if !isFinite(errNorm) {
			return nil, IntegrationError{Steps: steps + 1, T: t, ErrorEstimate: errNorm}
		}

		if errNorm <= 1 {
			t += h
			copy(y, yNext)
			// FSAL: stage 7 of the accepted step is stage 1 of the next.
			copy(k[0], k[6])
			if t >= t1 {
				return y, nil
			}
		}

		fac := 0.9 * math.Pow(math.Max(errNorm, 1e-10), -1./5)
		h *= math.Min(5, math.Max(0.2, fac))
		if t+h == t {
			return nil, IntegrationError{Steps: steps + 1, T: t, ErrorEstimate: errNorm}
		}
	}
	return nil, IntegrationError{Steps: maxSteps, T: t, ErrorEstimate: errNorm}
}
