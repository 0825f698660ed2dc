//go:build !nlopt

package optim

import (
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

const slsqpAvailable = false

func newSLSQP() (Solver, error) {
	return nil, errors.Wrap(dynamo.ErrConfiguration, "slsqp solver requires a build with -tags nlopt")
}
