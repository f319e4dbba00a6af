package visualekf

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Noise models the additive process noise of the predict step, i.e. the
// random walk driving the bias and extrinsic sub-blocks. Injection into the
// rate model is a documented extension point: the predictor validates the
// dimension of its configured Noise but does not yet draw from it, so
// configuring anything other than Noiseless changes nothing until the
// injection lands.
type Noise interface {
	Process(k int) *mat.VecDense  // Returns the process noise w at step k
	ProcessMatrix() mat.Symmetric // Returns the process noise matrix Q
	String() string
}

// Noiseless is noiseless and implements the Noise interface.
type Noiseless struct {
	size int
}

// NewNoiseless creates zero process noise of the provided dimension.
func NewNoiseless(size int) *Noiseless {
	if size <= 0 {
		panic("noise dimension must be positive")
	}
	return &Noiseless{size}
}

// Process returns a zero vector of the correct size.
func (n Noiseless) Process(k int) *mat.VecDense {
	return mat.NewVecDense(n.size, nil)
}

// ProcessMatrix implements the Noise interface.
func (n Noiseless) ProcessMatrix() mat.Symmetric {
	return mat.NewSymDense(n.size, nil)
}

// String implements the Stringer interface.
func (n Noiseless) String() string {
	return fmt.Sprintf("Noiseless{%d}", n.size)
}

// AWGN implements the Noise interface and generates additive white Gaussian
// noise with covariance Q.
type AWGN struct {
	Q       mat.Symmetric
	process *distmv.Normal
}

// NewAWGN creates new AWGN noise from the provided Q.
func NewAWGN(Q mat.Symmetric) *AWGN {
	if Q == nil || IsNil(Q) {
		panic("Q must be specified and non-zero (use Noiseless otherwise)")
	}
	seed := rand.New(rand.NewSource(1))
	size, _ := Q.Dims()
	process, ok := distmv.NewNormal(make([]float64, size), Q, seed)
	if !ok {
		panic("process noise covariance is not positive definite")
	}
	return &AWGN{Q, process}
}

// Process implements the Noise interface.
func (n AWGN) Process(k int) *mat.VecDense {
	r := n.process.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// ProcessMatrix implements the Noise interface.
func (n AWGN) ProcessMatrix() mat.Symmetric {
	return n.Q
}

// String implements the Stringer interface.
func (n AWGN) String() string {
	return fmt.Sprintf("AWGN{\nQ=%v}\n", mat.Formatted(n.Q, mat.Prefix("  ")))
}
