package booking

import (
	"errors"
	"fmt"

	"taxisync/internal/platform"
)

var (
	ErrBadRequest              = errors.New("bad request")
	ErrAddressResolutionFailed = errors.New("address resolution failed")
	ErrPartialBatchFailure     = errors.New("partial batch failure")

	ErrRemoteConflict    = platform.ErrConflict
	ErrRemoteNotFound    = platform.ErrNotFound
	ErrRemoteUnavailable = platform.ErrUnavailable
)

// BatchError reports a multi-item operation where at least one item failed.
// It matches ErrPartialBatchFailure when some items succeeded, and unwraps to
// every item error so callers can still test for the remote error kinds.
type BatchError struct {
	Succeeded int
	Failed    int
	Errs      []error
}

func (e *BatchError) Error() string {
	total := e.Succeeded + e.Failed
	if len(e.Errs) == 0 {
		return fmt.Sprintf("%d of %d items failed", e.Failed, total)
	}
	return fmt.Sprintf("%d of %d items failed: %v", e.Failed, total, e.Errs[0])
}

func (e *BatchError) Is(target error) bool {
	return target == ErrPartialBatchFailure && e.Succeeded > 0 && e.Failed > 0
}

func (e *BatchError) Unwrap() []error { return e.Errs }

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
