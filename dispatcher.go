package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/thinknode/thinknode-provider-ipc-net/frame"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

// handleFunction admits a decoded Function body to the dispatcher. At most
// one Function request may be running at a time; a second arrival while one
// is in flight is a supervisor protocol violation: the engine reports it
// with a Failure frame before the connection closes.
func (c *Connection) handleFunction(body []byte) error {
	c.log.Debug("function received", "bytes", len(body))
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		reason := "Function received while a request is already running"
		fb := FailureBody{Code: "ProtocolViolation", Message: reason}
		if err := c.sendFrame(frame.ActionFailure, fb.Encode()); err != nil {
			return err
		}
		return &ErrProtocolViolation{Reason: reason}
	}
	st := &requestState{}
	c.current = st
	c.mu.Unlock()

	c.metrics.callsIn.Add(1)
	c.metrics.callsActive.Add(1)

	c.tasks.Go(func() error {
		defer c.finishRequest(st)
		c.runFunction(st, body)
		return nil
	})
	return nil
}

func (c *Connection) finishRequest(st *requestState) {
	c.mu.Lock()
	if c.current == st {
		c.current = nil
	}
	c.mu.Unlock()
	c.metrics.callsActive.Add(-1)
}

// runFunction executes one Function request to completion on its dispatcher
// worker goroutine, reporting progress and a terminal Result or Failure
// frame via the reporters bound to st.
func (c *Connection) runFunction(st *requestState, body []byte) {
	progress, failure := c.makeReporters(st)

	req, err := DecodeFunctionRequest(body)
	if err != nil {
		c.metrics.callsInFailed.Add(1)
		failure("Decode", err.Error())
		return
	}

	desc, err := c.registry.Lookup(req.Name, len(req.Args))
	if err != nil {
		c.metrics.callsInFailed.Add(1)
		code := "NotFound"
		if errors.Is(err, registry.ErrArityMismatch) {
			code = "ArityMismatch"
		}
		failure(code, err.Error())
		return
	}

	result, err := c.invoke(desc, req.Args, progress, failure)
	if err != nil {
		c.metrics.callsInFailed.Add(1)
		fb := toFailure(err)
		c.log.Warn("computation failed", "method", req.Name, "code", fb.Code)
		failure(fb.Code, fb.Message)
		return
	}

	c.log.Info("function completed", "method", req.Name)
	// Write the Result and mark st done in one step under the writer lock,
	// so reporter calls made after completion emit nothing.
	c.out.Lock()
	if !st.cancel() {
		c.out.Unlock()
		return
	}
	err = c.sendFrameLocked(frame.ActionResult, result)
	c.out.Unlock()
	if err != nil {
		c.terminate(err)
	}
}

// invoke calls desc.Invoke, converting a panic in the user computation into
// an error instead of crashing the connection.
func (c *Connection) invoke(desc *registry.Descriptor, args [][]byte, progress registry.ProgressFunc, failure registry.FailureFunc) (data []byte, err error) {
	defer func() {
		if x := recover(); x != nil && err == nil {
			err = fmt.Errorf("computation %q panicked (recovered): %v", desc.Name, x)
		}
	}()
	return desc.Invoke(context.Background(), args, progress, failure)
}

// makeReporters builds the Progress and Failure reporter handles bound to
// st. Both become no-ops once st has been cancelled; Failure writes its
// frame and cancels st atomically with respect to concurrent callers.
func (c *Connection) makeReporters(st *requestState) (registry.ProgressFunc, registry.FailureFunc) {
	progress := func(fraction float32, message string) {
		c.log.Debug("progress reported", "fraction", fraction, "message", message)
		body := ProgressBody{Fraction: fraction, Message: message}
		c.emitIfActive(st, frame.ActionProgress, body.Encode())
	}
	failure := func(code, message string) {
		body := FailureBody{Code: code, Message: message}
		c.emitFailure(st, body.Encode())
	}
	return progress, failure
}

// emitIfActive writes a frame for st unless st is already cancelled,
// checking cancellation inside the writer lock so a concurrent emitFailure
// cannot cancel st between the check and the write.
func (c *Connection) emitIfActive(st *requestState, action frame.Action, body []byte) {
	c.out.Lock()
	if st.isCancelled() {
		c.out.Unlock()
		return
	}
	err := c.sendFrameLocked(action, body)
	c.out.Unlock()
	if err != nil {
		c.terminate(err)
	}
}

// emitFailure cancels st and writes a Failure frame for it, unless st was
// already cancelled. The cancel and the write happen inside the writer
// lock, so no frame emitted by emitIfActive for the same st can land on the
// wire after this one.
func (c *Connection) emitFailure(st *requestState, body []byte) {
	c.out.Lock()
	if !st.cancel() {
		c.out.Unlock()
		return
	}
	c.metrics.cancels.Add(1)
	err := c.sendFrameLocked(frame.ActionFailure, body)
	c.out.Unlock()
	if err != nil {
		c.terminate(err)
	}
}
