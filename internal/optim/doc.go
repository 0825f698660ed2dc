// Package optim chooses joint torques each stance tick.
//
// A candidate torque vector is scored by simulating one step ahead on the
// live robot handle and comparing the resulting base and swing-foot
// accelerations with the desired ones; the robot is restored afterwards.
// Two bounded solvers minimize that cost: a pure-Go BFGS over a tanh
// reparameterisation of the torque box, and nlopt's SLSQP when the binary
// is built with the nlopt tag.
package optim
