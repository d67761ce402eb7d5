package frame

import "errors"

// Sentinel errors reported by frame encoding and decoding. Use errors.Is to
// test for these; they are frequently wrapped with positional context.
var (
	// ErrUnsupportedVersion is reported when a header's version field is not
	// Version, on both encode and decode.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrUnknownAction is reported when a header's action byte does not name
	// one of the seven defined actions.
	ErrUnknownAction = errors.New("unknown action")

	// ErrTruncated is reported when a read ends before the declared number
	// of header or body bytes has been consumed.
	ErrTruncated = errors.New("truncated frame")
)
