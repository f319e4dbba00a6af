package visualekf

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ToWorldFrame expresses the tag positions of each state row in the world
// frame: body position, plus the rotated camera lever arm, plus the tag
// position carried from the camera frame through the extrinsic and body
// rotations. Rows are independent; the input states are not modified.
//
// Only positions are produced. World-frame tag orientations are not
// computed anywhere in the pipeline today; callers needing them must
// compose orientation ⊗ extrinsic⁻¹ ⊗ tag orientation themselves.
func ToWorldFrame(sc Schema, states []State) ([][]*mat.VecDense, error) {
	out := make([][]*mat.VecDense, len(states))
	for k, s := range states {
		if err := sc.Check(s); err != nil {
			return nil, errors.Wrapf(err, "state row %d", k)
		}
		lever := Rotate(s.Orientation, s.ExtrinsicPosition)
		row := make([]*mat.VecDense, sc.NumTags)
		for i, tag := range s.TagPositions {
			p := Rotate(s.Orientation, RotateInv(s.ExtrinsicOrientation, tag))
			p.AddVec(p, lever)
			p.AddVec(p, s.Position)
			row[i] = p
		}
		out[k] = row
	}
	return out, nil
}
