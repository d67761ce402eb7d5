package provider

import (
	"errors"
	"expvar"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/creachadair/taskgroup"
	"github.com/thinknode/thinknode-provider-ipc-net/channel"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

// A Connection runs the provider side of the IPC protocol over a single
// channel.Channel. A zero Connection is not ready for use; construct one
// with New.
//
// Call Start with a channel to begin the receive loop. The connection runs
// until Stop is called, the channel closes, or a protocol fatal error
// occurs. Use Wait to wait for the connection to exit and report its
// status.
type Connection struct {
	registry *registry.Registry
	log      Logger

	ch      channel.Channel
	tasks   *taskgroup.Group
	metrics *connMetrics

	out sync.Mutex // guards writes to ch

	mu      sync.Mutex
	current *requestState // nil unless a Function request is in flight
	err     error

	onExit func(error)
}

// New constructs an unstarted Connection dispatching Function requests
// against reg.
func New(reg *registry.Registry) *Connection {
	return &Connection{registry: reg, log: defaultLogger(), metrics: newConnMetrics()}
}

// OnExit registers a callback invoked when the connection terminates, with
// the same error Wait would report. Only one callback may be registered at
// a time; passing nil removes it.
func (c *Connection) OnExit(f func(error)) *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExit = f
	return c
}

// Metrics returns the connection's expvar metrics map.
func (c *Connection) Metrics() *expvar.Map { return c.metrics.emap }

// Start begins running the receive loop against ch. Start does not block;
// call Wait to wait for the connection to exit and report its status.
func (c *Connection) Start(ch channel.Channel) *Connection {
	if c.tasks != nil {
		panic("connection is already started")
	}
	g := taskgroup.New(nil)
	c.ch = ch
	c.tasks = g

	g.Go(func() error {
		for {
			fr, err := ch.Recv()
			if err != nil {
				c.terminate(err)
				return nil
			}
			c.metrics.framesRecv.Add(1)
			if err := c.dispatch(fr); err != nil {
				c.terminate(err)
				return nil
			}
		}
	})
	return c
}

// Stop closes the connection's channel and waits for it to exit.
func (c *Connection) Stop() error {
	c.closeOut()
	return c.Wait()
}

// Wait blocks until the connection terminates and reports the error that
// caused it to stop. A termination caused by a closed channel or io.EOF is
// reported as nil.
func (c *Connection) Wait() error {
	c.mu.Lock()
	t := c.tasks
	c.mu.Unlock()
	if t == nil {
		return nil
	}
	t.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if isCleanShutdown(c.err) {
		return nil
	}
	return c.err
}

func isCleanShutdown(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// dispatch routes one inbound frame. An error it returns is protocol fatal.
func (c *Connection) dispatch(fr *frame.Frame) error {
	switch fr.Action {
	case frame.ActionFunction:
		return c.handleFunction(fr.Body)
	case frame.ActionPing:
		return c.handlePing(fr.Body)
	case frame.ActionRegister, frame.ActionProgress, frame.ActionResult, frame.ActionFailure, frame.ActionPong:
		return &ErrProtocolViolation{Reason: fmt.Sprintf("unexpected inbound %v frame", fr.Action)}
	default:
		return &ErrProtocolViolation{Reason: fmt.Sprintf("unknown action %d", byte(fr.Action))}
	}
}

// handlePing validates and answers a Ping frame on a separate worker.
func (c *Connection) handlePing(body []byte) error {
	if len(body) != PingTokenLen {
		return &ErrProtocolViolation{Reason: fmt.Sprintf("ping body length %d, want %d", len(body), PingTokenLen)}
	}
	c.metrics.pingsIn.Add(1)
	c.tasks.Go(func() error {
		if err := c.sendFrame(frame.ActionPong, body); err != nil {
			c.terminate(err)
		}
		return nil
	})
	return nil
}

// sendFrame writes one frame to the channel under the writer lock. The call
// does not return until the frame is fully handed to the channel.
func (c *Connection) sendFrame(action frame.Action, body []byte) error {
	c.out.Lock()
	defer c.out.Unlock()
	return c.sendFrameLocked(action, body)
}

// sendFrameLocked writes one frame to the channel. Callers must hold c.out.
func (c *Connection) sendFrameLocked(action frame.Action, body []byte) error {
	if err := c.ch.Send(&frame.Frame{Version: frame.Version, Action: action, Body: body}); err != nil {
		return err
	}
	c.metrics.framesSent.Add(1)
	return nil
}

// terminate records err as the connection's fatal status, closes the
// channel, and tears down any request in flight. Only the first call has
// an effect.
func (c *Connection) terminate(err error) {
	c.closeOut()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.current = nil
	c.err = err
	if isCleanShutdown(err) {
		c.log.Info("connection closed")
	} else {
		c.log.Error("connection terminated", "error", err)
	}
	if c.onExit != nil {
		reported := err
		if isCleanShutdown(err) {
			reported = nil
		}
		c.onExit(reported)
	}
}

func (c *Connection) closeOut() {
	c.out.Lock()
	defer c.out.Unlock()
	if c.ch != nil {
		c.ch.Close()
	}
}
