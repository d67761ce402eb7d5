package channel_test

import (
	"io"
	"testing"

	"github.com/creachadair/taskgroup"
	"github.com/thinknode/thinknode-provider-ipc-net/channel"
	"github.com/thinknode/thinknode-provider-ipc-net/frame"
)

func TestDirect(t *testing.T) {
	c, s := channel.Direct()

	g := taskgroup.New(nil)
	g.Go(func() error {
		f := &frame.Frame{Version: 1, Action: frame.ActionPing, Body: []byte("hello")}
		if err := c.Send(f); err != nil {
			t.Errorf("A Send: %v", err)
		}
		got, err := c.Recv()
		if err != nil {
			t.Errorf("A Recv: %v", err)
		}
		if got != f {
			t.Errorf("Frame: got %v, want %v", got, f)
		}
		return nil
	})
	g.Go(func() error {
		f, err := s.Recv()
		if err != nil {
			t.Errorf("B Recv: %v", err)
		}
		if err := s.Send(f); err != nil {
			t.Errorf("B Send: %v", err)
		}
		return nil
	})
	g.Wait()

	if err := c.Close(); err != nil {
		t.Errorf("c.Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("s.Close: %v", err)
	}

	if err := c.Send(nil); err == nil {
		t.Error("c.Send after close did not report an error")
	}
	if err := s.Send(nil); err == nil {
		t.Error("s.Send after close did not report an error")
	}
	if f, err := c.Recv(); err == nil {
		t.Errorf("c.Recv after close: got %+v", f)
	} else {
		t.Logf("Error OK: %v", err)
	}
	if f, err := s.Recv(); err == nil {
		t.Errorf("s.Recv after close: got %+v", f)
	} else {
		t.Logf("Error OK: %v", err)
	}
}

func TestIOChannel(t *testing.T) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := channel.IO(ar, aw)
	b := channel.IO(br, bw)

	f := &frame.Frame{Version: 1, Action: frame.ActionFunction, Body: []byte("payload")}

	done := make(chan error, 1)
	go func() { done <- a.Send(f) }()

	got, err := b.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Action != f.Action || string(got.Body) != string(f.Body) {
		t.Errorf("Frame: got %+v, want %+v", got, f)
	}

	a.Close()
	b.Close()
}
