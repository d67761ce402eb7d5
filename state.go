package provider

import "sync/atomic"

// requestState tracks the cancellation flag for one Function request's
// lifetime. A zero requestState is Idle/Running. The flag becomes true when
// a Failure is reported or once the Result has been written; after that,
// all further Progress, Result or Failure frames derived from it are
// dropped.
type requestState struct {
	cancelled atomic.Bool
}

func (s *requestState) isCancelled() bool { return s.cancelled.Load() }

// cancel marks s as cancelled and reports whether this call was the one
// that transitioned it (false if it was already cancelled).
func (s *requestState) cancel() bool { return s.cancelled.CompareAndSwap(false, true) }
