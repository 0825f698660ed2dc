// Package analysis inspects recorded runs and the spring-mass return map.
//
//   - [PowerSpectrum], [StrideFrequency]: spectrum of a sampled channel and
//     its dominant frequency
//   - [PhasePortrait], [ApexSection]: phase-plane views of a trace
//   - [ReturnMapEigenvalues]: linear stability of a periodic pair under the
//     apex correction
//
// A closed loop whose eigenvalues all lie inside the unit circle returns to
// the periodic gait after a small apex disturbance:
//
//	eig, err := analysis.ReturnMapEigenvalues(sim, pair, jac, apex.DefaultGain, 0)
//	if err == nil && analysis.SpectralRadius(eig) < 1 {
//	    // stable
//	}
package analysis
