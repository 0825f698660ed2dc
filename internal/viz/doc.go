// Package viz draws a running biped in the terminal.
//
// [Watch] runs a simulation in the background and shows it on a Bubble Tea
// dashboard: gait phase and cycle, base state, per-joint torque sparklines,
// an asciigraph base height trace and a braille stick figure ([DrawRobot]).
// Frames reach the UI through a [Feed], which drops frames rather than
// slowing the simulation down.
//
// # Key Bindings
//
//	Space  - Pause/Resume the display
//	T      - Cycle color themes
//	F      - Toggle the robot figure
//	Arrows - Rotate the camera
//	+/-    - Zoom
//	?      - Show help overlay
package viz
