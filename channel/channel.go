// Package channel provides implementations of the Channel interface used
// to carry frames between a provider and its supervisor.
package channel

import (
	"bufio"
	"io"
	"net"

	"github.com/thinknode/thinknode-provider-ipc-net/frame"
)

// Direct constructs a connected pair of in-memory channels that pass frames
// directly without encoding into binary. Frames sent to A are received by B
// and vice versa. It is intended for engine tests that want to exercise
// dispatch logic without a real socket.
func Direct() (A, B Channel) {
	a2b := make(chan *frame.Frame)
	b2a := make(chan *frame.Frame)
	A = direct{a2b: a2b, b2a: b2a, done: make(chan struct{})}
	B = direct{a2b: b2a, b2a: a2b, done: make(chan struct{})}
	return
}

// A Channel is a reliable ordered stream of frames shared by a provider and
// its supervisor. Implementations must be safe for concurrent use by one
// sender and one receiver.
type Channel interface {
	// Send the frame to the peer.
	Send(*frame.Frame) error

	// Recv the next available frame from the channel.
	Recv() (*frame.Frame, error)

	// Close the channel, causing any pending send or receive operation to
	// terminate and report an error. After a channel is closed, all further
	// operations on it must report an error.
	Close() error
}

type direct struct {
	a2b  chan<- *frame.Frame
	b2a  <-chan *frame.Frame
	done chan struct{} // closed by Close on this side
}

// Send implements a method of the Channel interface.
func (d direct) Send(f *frame.Frame) (err error) {
	defer safeClose(&err)
	d.a2b <- f
	return nil
}

// Recv implements a method of the Channel interface.
func (d direct) Recv() (*frame.Frame, error) {
	select {
	case <-d.done:
		return nil, net.ErrClosed
	default:
	}
	select {
	case f, ok := <-d.b2a:
		if !ok {
			return nil, net.ErrClosed
		}
		return f, nil
	case <-d.done:
		return nil, net.ErrClosed
	}
}

// Close implements a method of the Channel interface.
func (d direct) Close() (err error) {
	defer safeClose(&err)
	close(d.done)
	close(d.a2b)
	return nil
}

func safeClose(err *error) {
	if x := recover(); x != nil && *err == nil {
		*err = net.ErrClosed
	}
}

// IO constructs a channel that receives from r and sends to wc. This is the
// implementation used in production, wrapping the TCP connection to a
// supervisor.
func IO(r io.Reader, wc io.WriteCloser) IOChannel {
	return IOChannel{r: bufio.NewReader(r), w: bufio.NewWriter(wc), c: wc}
}

// An IOChannel sends and receives frames on a reader and a writer.
type IOChannel struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer
}

// Send implements a method of the Channel interface.
func (c IOChannel) Send(f *frame.Frame) error {
	if _, err := f.WriteTo(c.w); err != nil {
		return err
	}
	return c.w.Flush()
}

// Recv implements a method of the Channel interface.
func (c IOChannel) Recv() (*frame.Frame, error) {
	var f frame.Frame
	if _, err := f.ReadFrom(c.r); err != nil {
		return nil, err
	}
	return &f, nil
}

// Close implements a method of the Channel interface.
func (c IOChannel) Close() error { return c.c.Close() }
