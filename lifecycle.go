package provider

import (
	"fmt"
	"net"

	"github.com/thinknode/thinknode-provider-ipc-net/channel"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

// Option configures a Connection constructed by Connect or Start.
type Option func(*Connection)

// WithLogger overrides the connection's diagnostic logger.
func WithLogger(log Logger) Option {
	return func(c *Connection) { c.log = log }
}

// WithOnExit registers a callback invoked when the connection terminates.
func WithOnExit(f func(error)) Option {
	return func(c *Connection) { c.onExit = f }
}

// Connect dials cfg.Address, sends the Register frame carrying cfg.PID, and
// returns an unstarted Connection wired to that socket. Call Start on the
// result to begin the receive loop.
func Connect(cfg Config, reg *registry.Registry, opts ...Option) (*Connection, error) {
	c := New(reg)
	for _, opt := range opts {
		opt(c)
	}

	c.log.Info("connecting", "address", cfg.Address())
	conn, err := net.Dial("tcp", cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Address(), err)
	}
	c.ch = channel.IO(conn, conn)

	body := RegisterBody{PID: cfg.PID}.Encode()
	if err := c.sendFrame(frame.ActionRegister, body); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register: %w", err)
	}
	c.log.Info("registered", "address", cfg.Address(), "pid", cfg.PID)
	return c, nil
}

// Start reads THINKNODE_HOST, THINKNODE_PORT, and THINKNODE_PID from the
// process environment, connects and registers with the supervisor, and
// begins the receive loop against reg. It is the top-level entry point for
// a standalone provider process; Start does not block, call Wait on the
// result to run until the connection terminates.
func Start(reg *registry.Registry, opts ...Option) (*Connection, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	c, err := Connect(cfg, reg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Start(c.ch), nil
}
