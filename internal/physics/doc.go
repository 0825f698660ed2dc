// Package physics provides the rigid-body biped used when no external
// simulator is attached.
//
// [Biped] is a floating box body with two three-joint legs. The legs carry
// no mass; each joint has a rotor inertia and viscous damping, and the feet
// meet a flat ground through a penalty spring-damper with capped viscous
// friction. A contact force reaches the body directly and the joints through
// the transpose of the foot Jacobian; hip motor torques react on the body.
//
// The model implements both [dynamo.System], so any integrator from
// package integrators can step it, and [robot.Handle]:
//
//	b, _ := physics.NewBiped(physics.DefaultConfig(), integrators.NewRK4())
//	b.SetJointTorque(robot.LeftKnee, 5)
//	if err := b.Step(); err != nil {
//	    return err
//	}
//
// The base angular velocity is the rate of the roll, pitch and yaw angles,
// which matches the true body rate for small tilts.
package physics
