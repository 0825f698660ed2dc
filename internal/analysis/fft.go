package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// PowerSpectrum returns the magnitude of the first half of the discrete
// Fourier transform of data. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	spec := fft.FFTReal(data)
	ps := make([]float64, len(spec)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// StrideFrequency is the dominant frequency in Hz of data sampled every dt,
// after removing its mean.
func StrideFrequency(data []float64, dt float64) (float64, error) {
	if len(data) < 4 || dt <= 0 {
		return 0, errors.Wrapf(dynamo.ErrNumericDegeneracy, "%d samples at dt %g", len(data), dt)
	}
	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	floats.AddConst(-mean, floats.AddTo(centered, centered, data))

	ps := PowerSpectrum(centered)
	if len(ps) < 2 {
		return 0, errors.Wrap(dynamo.ErrNumericDegeneracy, "spectrum too short")
	}
	peak := floats.MaxIdx(ps[1:]) + 1
	if ps[peak] == 0 {
		return 0, errors.Wrap(dynamo.ErrNumericDegeneracy, "flat signal")
	}
	return float64(peak) / (float64(len(data)) * dt), nil
}
