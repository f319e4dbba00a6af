package visualekf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func testState(numTags int) State {
	sc := Schema{NumTags: numTags}
	s := NewState(sc)
	s.Position.SetVec(0, 1.5)
	s.Position.SetVec(2, -0.25)
	s.Velocity.SetVec(1, 0.8)
	s.AccelBias.SetVec(0, 0.01)
	s.GyroBias.SetVec(2, -0.002)
	s.ExtrinsicPosition.SetVec(1, 0.05)
	s.Orientation = ExpMap(mat.NewVecDense(3, []float64{0, 0, 1}), math.Pi/3)
	s.ExtrinsicOrientation = ExpMap(mat.NewVecDense(3, []float64{1, 0, 0}), math.Pi/2)
	for i := 0; i < numTags; i++ {
		s.TagPositions[i].SetVec(0, float64(i))
		s.TagPositions[i].SetVec(2, 2+float64(i))
		s.TagOrientations[i] = ExpMap(mat.NewVecDense(3, []float64{0, 1, 0}), 0.1*float64(i+1))
	}
	return s
}

func TestCodecRoundTrip(t *testing.T) {
	sc := Schema{NumTags: 3}
	s := testState(3)

	v, err := sc.Encode(s)
	require.NoError(t, err)
	require.Equal(t, sc.EuclideanLen(), v.Len())

	back, err := sc.Decode(v, s)
	require.NoError(t, err)
	assert.True(t, mat.Equal(s.Position, back.Position))
	assert.True(t, mat.Equal(s.Velocity, back.Velocity))
	assert.True(t, mat.Equal(s.AccelBias, back.AccelBias))
	assert.True(t, mat.Equal(s.GyroBias, back.GyroBias))
	assert.True(t, mat.Equal(s.ExtrinsicPosition, back.ExtrinsicPosition))
	for i := range s.TagPositions {
		assert.True(t, mat.Equal(s.TagPositions[i], back.TagPositions[i]))
	}
	assert.Equal(t, s.Orientation, back.Orientation)
	assert.Equal(t, s.TagOrientations, back.TagOrientations)

	// Vector round trip in the other direction.
	v2, err := sc.Encode(back)
	require.NoError(t, err)
	assert.True(t, mat.Equal(v, v2))
}

func TestCodecOffsets(t *testing.T) {
	sc := Schema{NumTags: 2}
	s := testState(2)
	v, err := sc.Encode(s)
	require.NoError(t, err)

	assert.Equal(t, s.Position.AtVec(0), v.AtVec(posOffset))
	assert.Equal(t, s.Velocity.AtVec(1), v.AtVec(velOffset+1))
	assert.Equal(t, s.AccelBias.AtVec(0), v.AtVec(accelBiasOffset))
	assert.Equal(t, s.GyroBias.AtVec(2), v.AtVec(gyroBiasOffset+2))
	assert.Equal(t, s.ExtrinsicPosition.AtVec(1), v.AtVec(extPosOffset+1))
	assert.Equal(t, s.TagPositions[1].AtVec(2), v.AtVec(tagOffset(1)+2))
}

func TestCodecSchemaMismatch(t *testing.T) {
	sc := Schema{NumTags: 2}
	s := testState(1)
	_, err := sc.Encode(s)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	short := mat.NewVecDense(sc.EuclideanLen()-1, nil)
	_, err = sc.Decode(short, testState(2))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCloneIsDeep(t *testing.T) {
	s := testState(1)
	c := s.Clone()
	c.Position.SetVec(0, 99)
	c.TagPositions[0].SetVec(0, 99)
	c.TagOrientations[0] = quat.Number{Real: 1}

	assert.Equal(t, 1.5, s.Position.AtVec(0))
	assert.Equal(t, 0.0, s.TagPositions[0].AtVec(0))
	assert.NotEqual(t, s.TagOrientations[0], c.TagOrientations[0])
}

func TestValidateRejectsBadInputs(t *testing.T) {
	sc := Schema{NumTags: 1}

	nan := testState(1)
	nan.Velocity.SetVec(0, math.NaN())
	assert.ErrorIs(t, sc.Validate(nan), ErrNotFinite)

	inf := testState(1)
	inf.TagPositions[0].SetVec(1, math.Inf(1))
	assert.ErrorIs(t, sc.Validate(inf), ErrNotFinite)

	offNorm := testState(1)
	offNorm.Orientation = quat.Scale(1.01, offNorm.Orientation)
	assert.ErrorIs(t, sc.Validate(offNorm), ErrNotUnitQuaternion)

	ok := testState(1)
	assert.NoError(t, sc.Validate(ok))
}

func TestNormalizeOrientations(t *testing.T) {
	s := testState(1)
	s.Orientation = quat.Scale(3, s.Orientation)
	s.TagOrientations[0] = quat.Scale(0.5, s.TagOrientations[0])

	n := s.NormalizeOrientations()
	assert.InDelta(t, 1, quat.Abs(n.Orientation), 1e-12)
	assert.InDelta(t, 1, quat.Abs(n.TagOrientations[0]), 1e-12)
	// The receiver keeps its drift.
	assert.InDelta(t, 3, quat.Abs(s.Orientation), 1e-12)
}
