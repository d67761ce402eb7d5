// Package providertest provides support code for testing a provider
// Connection without a real TCP socket or supervisor.
package providertest

import (
	"net"
	"testing"

	provider "github.com/thinknode/thinknode-provider-ipc-net"
	"github.com/thinknode/thinknode-provider-ipc-net/channel"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
	"github.com/thinknode/thinknode-provider-ipc-net/registry"
)

// Local is a Connection and its connected simulated supervisor side,
// suitable for testing.
type Local struct {
	Conn *provider.Connection
	Sup  channel.Channel
}

// NewLocal creates a Connection serving reg, connected to an in-memory
// simulated supervisor without any wire encoding overhead.
func NewLocal(reg *registry.Registry) *Local {
	sup, prov := channel.Direct()
	return &Local{
		Conn: provider.New(reg).Start(prov),
		Sup:  sup,
	}
}

// NewPipe creates a Connection serving reg, connected to a simulated
// supervisor over a pair of net.Pipe conns, exercising the same frame
// encoding and decoding a real TCP socket would.
func NewPipe(reg *registry.Registry) *Local {
	supConn, provConn := net.Pipe()
	return &Local{
		Conn: provider.New(reg).Start(channel.IO(provConn, provConn)),
		Sup:  channel.IO(supConn, supConn),
	}
}

// Stop shuts down the connection and blocks until it has exited.
func (l *Local) Stop() error { return l.Conn.Stop() }

// SendFunction sends a Function frame for name with the given already
// MessagePack-encoded arguments.
func (l *Local) SendFunction(t testing.TB, name string, args [][]byte) {
	t.Helper()
	body := provider.FunctionRequest{Name: name, Args: args}.Encode()
	if err := l.Sup.Send(&frame.Frame{Version: frame.Version, Action: frame.ActionFunction, Body: body}); err != nil {
		t.Fatalf("SendFunction(%s): %v", name, err)
	}
}

// Recv reads the next frame sent by the connection to the simulated
// supervisor.
func (l *Local) Recv(t testing.TB) *frame.Frame {
	t.Helper()
	fr, err := l.Sup.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	return fr
}
