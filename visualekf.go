// Package visualekf implements the predict step of a quaternion-based
// extended Kalman filter for visual-inertial state estimation. The state
// tracks the body pose and velocity, IMU biases, camera extrinsics and the
// camera-frame poses of observed fiducial tags. Euclidean sub-blocks are
// propagated through an adaptive Runge-Kutta integration of the rigid-body
// rate equations; orientations live on SO(3) and are advanced in closed
// form through the exponential map.
//
// The correction step (measurement fusion and covariance propagation) is a
// separate concern and is not part of this package.
package visualekf

// Propagator advances a state estimate forward in time from an IMU sample.
type Propagator interface {
	Predict(s State, imu IMUSample, dt float64) (State, error)
}
