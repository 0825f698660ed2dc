package robot

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

// WithSnapshot saves the handle state, runs fn and restores the state on every
// exit path, including a panic in fn. Save and restore failures are wrapped in
// dynamo.ErrExternalState and combined with fn's error.
func WithSnapshot(h Handle, fn func() error) (err error) {
	snap, saveErr := h.SaveState()
	if saveErr != nil {
		return errors.Wrap(dynamo.ErrExternalState, saveErr.Error())
	}
	defer func() {
		if restoreErr := h.RestoreState(snap); restoreErr != nil {
			err = multierr.Combine(err, errors.Wrapf(dynamo.ErrExternalState, "restore snapshot %d: %v", snap, restoreErr))
		}
		h.DiscardState(snap)
	}()
	return fn()
}
