package visualekf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Config collects the tunables of the predict step.
type Config struct {
	// Gravity is the gravity magnitude in m/s²; the world gravity vector is
	// (0, 0, -Gravity). The default of zero matches rigs where gravity is
	// compensated upstream of the filter. Set 9.81 for raw accelerometer
	// input.
	Gravity float64
	// Renormalize re-unitizes every orientation after the closed-form
	// update. Off, the predictor reproduces the raw exponential-map
	// composition and leaves norm drift to the caller (see QuatNormTol).
	Renormalize bool
	// AbsTol, RelTol and MaxSteps tune the adaptive integrator; zero values
	// use the DormandPrince defaults.
	AbsTol   float64
	RelTol   float64
	MaxSteps int
	// ProcessNoise is the random-walk noise for the bias and extrinsic
	// sub-blocks. Validated against the schema but not yet injected into
	// the rate model; Noiseless is the only setting with an effect today.
	ProcessNoise Noise
}

// DefaultConfig returns zero gravity, renormalization on, the default
// integrator tolerances and no process noise.
func DefaultConfig(sc Schema) Config {
	return Config{
		Renormalize:  true,
		ProcessNoise: NewNoiseless(sc.EuclideanLen()),
	}
}

// Predictor computes the a-priori state of a visual-inertial EKF. It is
// immutable after construction and safe for concurrent use; each Predict
// call touches only its own arguments.
type Predictor struct {
	schema Schema
	cfg    Config
	solver DormandPrince
}

// NewPredictor returns a predictor for the given schema.
func NewPredictor(sc Schema, cfg Config) (*Predictor, error) {
	if sc.NumTags < 0 {
		return nil, errors.Wrapf(ErrSchemaMismatch, "negative tag count %d", sc.NumTags)
	}
	if !isFinite(cfg.Gravity) || cfg.Gravity < 0 {
		return nil, errors.Errorf("gravity magnitude must be finite and non-negative, got %v", cfg.Gravity)
	}
	if cfg.ProcessNoise != nil {
		if qn, _ := cfg.ProcessNoise.ProcessMatrix().Dims(); qn != sc.EuclideanLen() {
			return nil, errors.Wrapf(ErrSchemaMismatch, "process noise dimension %d, schema requires %d", qn, sc.EuclideanLen())
		}
	}
	solver := DormandPrince{AbsTol: cfg.AbsTol, RelTol: cfg.RelTol, MaxSteps: cfg.MaxSteps}
	return &Predictor{schema: sc, cfg: cfg, solver: solver}, nil
}

// rateModel holds the per-call quantities the rate equations close over:
// the bias-corrected measurement, the so(3) matrices of the angular
// velocity in body and camera frames, and the orientations frozen at the
// start of the interval. It is built once per Predict call so the
// integrator sees no shared mutable state.
type rateModel struct {
	numTags        int
	orientation    quat.Number   // body to world, frozen over the step
	extOrientation quat.Number   // body to camera
	f              *mat.VecDense // bias-corrected specific force, body frame
	gBody          *mat.VecDense // gravity rotated into the body frame
	omega          *mat.Dense    // Skew(omega), body frame
	omegaCam       *mat.Dense    // Skew(omega) in the camera frame
}

// rates is the continuous-time model for the Euclidean sub-blocks,
// evaluated by the integrator at arbitrary intermediate times. Biases and
// extrinsics are random walks with no deterministic drift, so their rows
// stay zero.
func (m *rateModel) rates(t float64, y, dydt []float64) {
	vel := mat.NewVecDense(3, y[velOffset:velOffset+3])

	// Body velocity expressed in the world frame.
	dpos := Rotate(m.orientation, vel)

	// Specific force plus gravity, minus the rotating-frame correction
	// omega × v.
	var wv mat.VecDense
	wv.MulVec(m.omega, vel)
	for i := 0; i < 3; i++ {
		dydt[posOffset+i] = dpos.AtVec(i)
		dydt[velOffset+i] = m.gBody.AtVec(i) + m.f.AtVec(i) - wv.AtVec(i)
	}
	for i := accelBiasOffset; i < tagBase; i++ {
		dydt[i] = 0
	}

	// Linear velocity of the camera origin, seen in the camera frame:
	// the lever arm omega × extPos plus the body velocity, rotated over.
	extPos := mat.NewVecDense(3, y[extPosOffset:extPosOffset+3])
	var lever mat.VecDense
	lever.MulVec(m.omega, extPos)
	lever.AddVec(&lever, vel)
	camVel := Rotate(m.extOrientation, &lever)

	// Tags are static in the world; in the moving camera frame they sweep
	// with -omegaCam × tag and recede with the camera velocity.
	for i := 0; i < m.numTags; i++ {
		off := tagOffset(i)
		tag := mat.NewVecDense(3, y[off:off+3])
		var wt mat.VecDense
		wt.MulVec(m.omegaCam, tag)
		for j := 0; j < 3; j++ {
			dydt[off+j] = -wt.AtVec(j) - camVel.AtVec(j)
		}
	}
}

// Predict computes the a-priori state after dt seconds under the IMU
// sample. The input state is not modified; the returned state shares no
// storage with it. Euclidean sub-blocks are integrated with the adaptive
// solver, orientations advance by exact exponential-map composition under
// the constant-angular-velocity assumption.
func (p *Predictor) Predict(s State, imu IMUSample, dt float64) (State, error) {
	if math.IsNaN(dt) || dt <= 0 {
		return State{}, errors.Wrapf(ErrNonPositiveStep, "dt = %v", dt)
	}
	if err := p.schema.Validate(s); err != nil {
		return State{}, err
	}
	for _, in := range []struct {
		name string
		v    *mat.VecDense
	}{{"imu acceleration", imu.Accel}, {"imu angular velocity", imu.Gyro}} {
		if err := checkVecDims(in.v, in.name, 3); err != nil {
			return State{}, err
		}
		if err := checkFinite(in.v, in.name); err != nil {
			return State{}, err
		}
	}

	// Bias-corrected measurement.
	f := mat.NewVecDense(3, nil)
	f.SubVec(imu.Accel, s.AccelBias)
	omega := mat.NewVecDense(3, nil)
	omega.SubVec(imu.Gyro, s.GyroBias)
	omegaCam := Rotate(s.ExtrinsicOrientation, omega)

	model := &rateModel{
		numTags:        p.schema.NumTags,
		orientation:    s.Orientation,
		extOrientation: s.ExtrinsicOrientation,
		f:              f,
		gBody:          RotateInv(s.Orientation, mat.NewVecDense(3, []float64{0, 0, -p.cfg.Gravity})),
		omega:          Skew(omega),
		omegaCam:       Skew(omegaCam),
	}

	y0, err := p.schema.Encode(s)
	if err != nil {
		return State{}, err
	}
	y1, err := p.solver.Integrate(y0.RawVector().Data, 0, dt, model.rates)
	if err != nil {
		return State{}, errors.Wrap(err, "predict")
	}

	next, err := p.schema.Decode(mat.NewVecDense(len(y1), y1), s)
	if err != nil {
		return State{}, err
	}

	next.Orientation = quat.Mul(s.Orientation, ExpMap(omega, dt))
	for i, q := range s.TagOrientations {
		next.TagOrientations[i] = quat.Mul(q, ExpMap(omegaCam, -dt))
	}
	if p.cfg.Renormalize {
		next = next.NormalizeOrientations()
	}
	return next, nil
}
