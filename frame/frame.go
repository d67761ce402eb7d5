// Package frame implements the length-prefixed binary wire format used by a
// calculation provider connection: an 8-byte header followed by an opaque
// body of exactly the length the header names.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the only protocol version this package understands.
const Version = 1

// HeaderLen is the fixed size in bytes of a frame header.
const HeaderLen = 8

// An Action identifies the logical kind of a Frame's body. Action values 0
// through 6 are the only ones defined by the protocol; any other byte in the
// action position of a header is a protocol error.
type Action byte

const (
	ActionRegister Action = 0
	ActionFunction Action = 1
	ActionProgress Action = 2
	ActionResult   Action = 3
	ActionFailure  Action = 4
	ActionPing     Action = 5
	ActionPong     Action = 6
)

func (a Action) String() string {
	switch a {
	case ActionRegister:
		return "REGISTER"
	case ActionFunction:
		return "FUNCTION"
	case ActionProgress:
		return "PROGRESS"
	case ActionResult:
		return "RESULT"
	case ActionFailure:
		return "FAILURE"
	case ActionPing:
		return "PING"
	case ActionPong:
		return "PONG"
	default:
		return fmt.Sprintf("action(%d)", byte(a))
	}
}

// DecodeAction converts a wire byte into an Action. It is a total bijection
// over 0..=6; any other value reports ErrUnknownAction.
func DecodeAction(b byte) (Action, error) {
	switch Action(b) {
	case ActionRegister, ActionFunction, ActionProgress, ActionResult, ActionFailure, ActionPing, ActionPong:
		return Action(b), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownAction, b)
	}
}

// A Frame is the parsed form of a single wire unit: an 8-byte header plus an
// opaque body whose length matches the header's length field.
type Frame struct {
	Version byte
	Action  Action
	Body    []byte
}

// Encode renders f in binary wire format.
func (f Frame) Encode() ([]byte, error) {
	if f.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	buf := make([]byte, HeaderLen+len(f.Body))
	buf[0] = f.Version
	buf[1] = 0
	buf[2] = byte(f.Action)
	buf[3] = 0
	binary.BigEndian.PutUint32(buf[4:], uint32(len(f.Body)))
	copy(buf[HeaderLen:], f.Body)
	return buf, nil
}

// WriteTo writes f to w in binary wire format. It implements io.WriterTo.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	buf, err := f.Encode()
	if err != nil {
		return 0, err
	}
	n, err := writeAll(w, buf)
	return int64(n), err
}

// writeAll writes buf to w in full, retrying partial writes to completion.
func writeAll(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom reads a frame from r in binary wire format. It implements
// io.ReaderFrom. A short read of the header or of the body before the
// declared length is satisfied reports ErrTruncated. A stream that ends
// cleanly before the first header byte reports plain io.EOF.
func (f *Frame) ReadFrom(r io.Reader) (int64, error) {
	var hdr [HeaderLen]byte
	nr, err := io.ReadFull(r, hdr[:])
	if err != nil {
		if nr == 0 && errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return int64(nr), fmt.Errorf("%w: short header (%d bytes): %w", ErrTruncated, nr, err)
	}

	version := hdr[0]
	if version != Version {
		return int64(nr), fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	action, err := DecodeAction(hdr[2])
	if err != nil {
		return int64(nr), err
	}
	length := binary.BigEndian.Uint32(hdr[4:])

	f.Version = version
	f.Action = action
	f.Body, err = readExact(r, int(length))
	nr += len(f.Body)
	if err != nil {
		return int64(nr), err
	}
	return int64(nr), nil
}

// readExact reads exactly n bytes from r, looping over short reads. Reaching
// end of stream before n bytes are read reports ErrTruncated.
func readExact(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil // an empty body decodes as nil, as Encode accepts it
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil {
		return buf[:read], fmt.Errorf("%w: wanted %d bytes, got %d: %v", ErrTruncated, n, read, err)
	}
	return buf, nil
}

// String returns a human-friendly rendering of f.
func (f Frame) String() string {
	return fmt.Sprintf("Frame(v%d, %v, %d bytes)", f.Version, f.Action, len(f.Body))
}
