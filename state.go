package visualekf

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Offsets of the Euclidean sub-blocks in the flat state vector. The rate
// equations address sub-blocks by these offsets, so the layout is part of
// the codec contract.
const (
	posOffset       = 0
	velOffset       = 3
	accelBiasOffset = 6
	gyroBiasOffset  = 9
	extPosOffset    = 12
	tagBase         = 15
)

func tagOffset(i int) int { return tagBase + 3*i }

// Schema fixes the sub-block layout of a filter state. The number of tag
// slots is set once per filter instance; every State handed to the
// predictor must carry exactly that many tag poses.
type Schema struct {
	NumTags int
}

// EuclideanLen returns the length of the flat vector holding the Euclidean
// sub-blocks: position, velocity, both biases, extrinsic position and one
// 3-vector per tag. Orientations are excluded because their time derivative
// is not a quaternion; the predictor updates them in closed form instead.
func (sc Schema) EuclideanLen() int { return tagBase + 3*sc.NumTags }

// State is the full filter state. Each predict call consumes one State and
// returns a new one; a State is never mutated in place.
type State struct {
	Position             *mat.VecDense // body position, world frame
	Velocity             *mat.VecDense // body velocity, body frame
	Orientation          quat.Number   // body-to-world rotation
	AccelBias            *mat.VecDense // accelerometer bias, body frame
	GyroBias             *mat.VecDense // gyroscope bias, body frame
	ExtrinsicPosition    *mat.VecDense // IMU-to-camera offset, camera frame
	ExtrinsicOrientation quat.Number   // body-to-camera rotation
	TagPositions         []*mat.VecDense
	TagOrientations      []quat.Number
}

// IMUSample is one inertial measurement in the body-sensor axes, not yet
// corrected for bias.
type IMUSample struct {
	Accel *mat.VecDense // linear acceleration
	Gyro  *mat.VecDense // angular velocity
}

// NewState returns a zero state matching the schema, with all orientations
// set to the identity rotation.
func NewState(sc Schema) State {
	s := State{
		Position:             mat.NewVecDense(3, nil),
		Velocity:             mat.NewVecDense(3, nil),
		Orientation:          quat.Number{Real: 1},
		AccelBias:            mat.NewVecDense(3, nil),
		GyroBias:             mat.NewVecDense(3, nil),
		ExtrinsicPosition:    mat.NewVecDense(3, nil),
		ExtrinsicOrientation: quat.Number{Real: 1},
		TagPositions:         make([]*mat.VecDense, sc.NumTags),
		TagOrientations:      make([]quat.Number, sc.NumTags),
	}
	for i := 0; i < sc.NumTags; i++ {
		s.TagPositions[i] = mat.NewVecDense(3, nil)
		s.TagOrientations[i] = quat.Number{Real: 1}
	}
	return s
}

// Clone returns a deep copy sharing no storage with the receiver.
func (s State) Clone() State {
	c := s
	c.Position = mat.VecDenseCopyOf(s.Position)
	c.Velocity = mat.VecDenseCopyOf(s.Velocity)
	c.AccelBias = mat.VecDenseCopyOf(s.AccelBias)
	c.GyroBias = mat.VecDenseCopyOf(s.GyroBias)
	c.ExtrinsicPosition = mat.VecDenseCopyOf(s.ExtrinsicPosition)
	c.TagPositions = make([]*mat.VecDense, len(s.TagPositions))
	for i, p := range s.TagPositions {
		c.TagPositions[i] = mat.VecDenseCopyOf(p)
	}
	c.TagOrientations = append([]quat.Number(nil), s.TagOrientations...)
	return c
}

// NormalizeOrientations returns a copy with every orientation re-unitized.
// Callers running the predictor with Renormalize off can use this to strip
// accumulated norm drift on their own schedule.
func (s State) NormalizeOrientations() State {
	c := s.Clone()
	c.Orientation = Normalize(c.Orientation)
	c.ExtrinsicOrientation = Normalize(c.ExtrinsicOrientation)
	for i, q := range c.TagOrientations {
		c.TagOrientations[i] = Normalize(q)
	}
	return c
}

// Check verifies that the state carries the sub-blocks the schema requires.
func (sc Schema) Check(s State) error {
	if sc.NumTags < 0 {
		return errors.Wrapf(ErrSchemaMismatch, "negative tag count %d", sc.NumTags)
	}
	blocks := []struct {
		name string
		v    *mat.VecDense
	}{
		{"position", s.Position},
		{"velocity", s.Velocity},
		{"accel bias", s.AccelBias},
		{"gyro bias", s.GyroBias},
		{"extrinsic position", s.ExtrinsicPosition},
	}
	for _, b := range blocks {
		if err := checkVecDims(b.v, b.name, 3); err != nil {
			return err
		}
	}
	if len(s.TagPositions) != sc.NumTags || len(s.TagOrientations) != sc.NumTags {
		return errors.Wrapf(ErrSchemaMismatch, "state has %d tag positions and %d tag orientations, schema requires %d",
			len(s.TagPositions), len(s.TagOrientations), sc.NumTags)
	}
	for i, p := range s.TagPositions {
		if err := checkVecDims(p, fmt.Sprintf("tag %d position", i), 3); err != nil {
			return err
		}
	}
	return nil
}

// Validate runs the full input contract: schema agreement, finiteness of
// every component and unit norm of every orientation within QuatNormTol.
func (sc Schema) Validate(s State) error {
	if err := sc.Check(s); err != nil {
		return err
	}
	blocks := []struct {
		name string
		v    *mat.VecDense
	}{
		{"position", s.Position},
		{"velocity", s.Velocity},
		{"accel bias", s.AccelBias},
		{"gyro bias", s.GyroBias},
		{"extrinsic position", s.ExtrinsicPosition},
	}
	for _, b := range blocks {
		if err := checkFinite(b.v, b.name); err != nil {
			return err
		}
	}
	if err := checkUnitQuat(s.Orientation, "orientation"); err != nil {
		return err
	}
	if err := checkUnitQuat(s.ExtrinsicOrientation, "extrinsic orientation"); err != nil {
		return err
	}
	for i, p := range s.TagPositions {
		if err := checkFinite(p, fmt.Sprintf("tag %d position", i)); err != nil {
			return err
		}
	}
	for i, q := range s.TagOrientations {
		if err := checkUnitQuat(q, fmt.Sprintf("tag %d orientation", i)); err != nil {
			return err
		}
	}
	return nil
}

// Encode packs the Euclidean sub-blocks into a flat vector in the fixed
// offset order above. Orientations do not participate.
func (sc Schema) Encode(s State) (*mat.VecDense, error) {
	if err := sc.Check(s); err != nil {
		return nil, err
	}
	v := mat.NewVecDense(sc.EuclideanLen(), nil)
	setBlock(v, posOffset, s.Position)
	setBlock(v, velOffset, s.Velocity)
	setBlock(v, accelBiasOffset, s.AccelBias)
	setBlock(v, gyroBiasOffset, s.GyroBias)
	setBlock(v, extPosOffset, s.ExtrinsicPosition)
	for i, p := range s.TagPositions {
		setBlock(v, tagOffset(i), p)
	}
	return v, nil
}

// Decode unpacks a flat vector produced by Encode into a copy of the
// template state. The template supplies the orientation sub-blocks, which
// the flat vector does not carry. Decode(Encode(s), s) round-trips exactly.
func (sc Schema) Decode(v *mat.VecDense, template State) (State, error) {
	if err := sc.Check(template); err != nil {
		return State{}, err
	}
	if v == nil || v.Len() != sc.EuclideanLen() {
		return State{}, errors.Wrapf(ErrSchemaMismatch, "flat vector must have length %d", sc.EuclideanLen())
	}
	s := template.Clone()
	getBlock(s.Position, v, posOffset)
	getBlock(s.Velocity, v, velOffset)
	getBlock(s.AccelBias, v, accelBiasOffset)
	getBlock(s.GyroBias, v, gyroBiasOffset)
	getBlock(s.ExtrinsicPosition, v, extPosOffset)
	for i, p := range s.TagPositions {
		getBlock(p, v, tagOffset(i))
	}
	return s, nil
}

func setBlock(v *mat.VecDense, off int, b *mat.VecDense) {
	for i := 0; i < 3; i++ {
		v.SetVec(off+i, b.AtVec(i))
	}
}

func getBlock(b *mat.VecDense, v *mat.VecDense, off int) {
	for i := 0; i < 3; i++ {
		b.SetVec(i, v.AtVec(off+i))
	}
}
