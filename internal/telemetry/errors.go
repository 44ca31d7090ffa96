package telemetry

import (
	"errors"
	"fmt"
)

// ErrInvalidOrdering is returned for sample sequences that go back in time.
var ErrInvalidOrdering = errors.New("samples not sorted by timestamp")

// PreconditionError reports a structural problem with the input of the core
// that cannot be recovered from locally. Callers decide whether to skip the
// lap or to abort the analysis.
type PreconditionError struct {
	Precondition string // Which precondition failed, e.g. "ordering", "channel"
	Detail       string // Offending channel name or sample position
	Err          error  // Sentinel error for errors.Is
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s precondition failed: %s", e.Precondition, e.Err)
	}
	return fmt.Sprintf("%s precondition failed (%s): %s", e.Precondition, e.Detail, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
