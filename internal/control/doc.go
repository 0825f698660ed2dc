// Package control holds the proportional-derivative laws the gait
// controller composes: joint tracking in flight, and the center-of-mass,
// swing-foot and body-levelling targets in stance.
//
//	gains := control.DefaultGains()
//	tau := gains.Air.Joints(qRef, dqRef, q, dq)
//
// Gains can be adjusted by name, e.g. "com.kp", from the command line.
package control
