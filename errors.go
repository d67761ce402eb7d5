package provider

import (
	"errors"
	"fmt"
)

// ErrEnvMissing is reported at startup when a required environment variable
// is missing or unparseable. It is always fatal.
type ErrEnvMissing struct {
	Var    string
	Reason string
}

func (e *ErrEnvMissing) Error() string {
	return fmt.Sprintf("environment variable %s: %s", e.Var, e.Reason)
}

// ErrProtocolViolation reports an inbound frame that the protocol forbids in
// the connection's current state, e.g. a second Function while one is still
// running, or an inbound frame of an action reserved for the provider to
// send. It is always fatal.
type ErrProtocolViolation struct {
	Reason string
}

func (e *ErrProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s", e.Reason)
}

// UserError wraps an error raised by a registered computation, after
// unwrapping any invocation envelope. Its Code becomes the Failure frame's
// code; if Code is empty, the dispatcher reports the error's kind as
// "UserError".
type UserError struct {
	Code    string
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// failureCoder is an extension interface an error may implement to control
// the code reported in the Failure frame derived from it. UserError
// implements it directly; codec.DecodeError satisfies it structurally,
// without this package importing codec.
type failureCoder interface {
	FailureCode() string
}

func (e *UserError) FailureCode() string {
	if e.Code != "" {
		return e.Code
	}
	return "UserError"
}

// toFailure converts any error raised by dispatch machinery into a
// FailureBody. The message is that of the innermost error in err's Unwrap
// chain; the code comes from the first error in the chain that implements
// failureCoder, or is "UserError" if none does.
func toFailure(err error) FailureBody {
	innermost := unwrapInnermost(err)

	var code string
	var fc failureCoder
	if errors.As(err, &fc) {
		code = fc.FailureCode()
	} else {
		code = "UserError"
	}
	return FailureBody{Code: code, Message: innermost.Error()}
}

// unwrapInnermost walks err's Unwrap chain to the error with no further
// Unwrap method, skipping past framework wrapping such as fmt.Errorf's
// "%w" envelopes and panic-recovery wrappers.
func unwrapInnermost(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
