package apex

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// Correction is the control offset [dAlpha, dBeta, dK, -dK]. The stiffness
// offset is applied with opposite signs to compression and decompression.
type Correction [4]float64

// ComputeCorrection maps the apex deviation from ref through J.
func ComputeCorrection(apex State, ref Pair, J mat.Matrix) (Correction, error) {
	if r, c := J.Dims(); r != 3 || c != 3 {
		return Correction{}, errors.Wrapf(dynamo.ErrConfiguration, "sensitivity matrix is %dx%d, want 3x3", r, c)
	}
	var delta mat.VecDense
	delta.MulVec(J, apex.Sub(ref.Apex).vec())
	d0, d1, d2 := delta.AtVec(0), delta.AtVec(1), delta.AtVec(2)
	if !finite(d0, d1, d2) {
		return Correction{}, errors.Wrap(dynamo.ErrNumericDegeneracy, "non-finite control correction")
	}
	return Correction{d0, d1, d2, -d2}, nil
}

// DefaultGain scales the correction applied each cycle.
const DefaultGain = 0.1

// BootstrapBeta replaces the lateral placement on the first cycle.
const BootstrapBeta = math.Pi / 25

// CycleControl is ref's controls plus gain*corr. On cycle 1, Beta is
// replaced by bootstrapBeta.
func CycleControl(ref Pair, corr Correction, cycle int, gain, bootstrapBeta float64) Controls {
	u := ref.Controls
	u.Alpha += gain * corr[0]
	u.Beta += gain * corr[1]
	u.KS1 += gain * corr[2]
	u.KS2 += gain * corr[3]
	if cycle == 1 {
		u.Beta = bootstrapBeta
	}
	return u
}
