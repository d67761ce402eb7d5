package frame

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// A Scanner reads encoded fields from the contents of a frame body.
// The methods of a scanner return io.ErrUnexpectedEOF when the input is
// shorter than the field being read.
type Scanner struct {
	rest   []byte
	offset int
}

// NewScanner constructs a Scanner that consumes data from input. The scanner
// does not modify input, but retains slices into it, so the caller should not
// modify input while the scanner is in use.
func NewScanner(input []byte) *Scanner {
	return &Scanner{rest: input}
}

// Byte scans a single byte from the head of the input.
func (s *Scanner) Byte() (byte, error) {
	if len(s.rest) == 0 {
		return 0, fmt.Errorf("%w: byte", io.ErrUnexpectedEOF)
	}
	out := s.rest[0]
	s.rest = s.rest[1:]
	s.offset++
	return out, nil
}

// Uint16 parses a big-endian uint16 value from the head of the input.
func (s *Scanner) Uint16() (uint16, error) {
	if len(s.rest) < 2 {
		return 0, fmt.Errorf("uint16 truncated (%d < 2 bytes): %w", len(s.rest), io.ErrUnexpectedEOF)
	}
	out := binary.BigEndian.Uint16(s.rest[:2])
	s.rest = s.rest[2:]
	s.offset += 2
	return out, nil
}

// Uint32 parses a big-endian uint32 value from the head of the input.
func (s *Scanner) Uint32() (uint32, error) {
	if len(s.rest) < 4 {
		return 0, fmt.Errorf("uint32 truncated (%d < 4 bytes): %w", len(s.rest), io.ErrUnexpectedEOF)
	}
	out := binary.BigEndian.Uint32(s.rest[:4])
	s.rest = s.rest[4:]
	s.offset += 4
	return out, nil
}

// Float32 parses a big-endian IEEE-754 single-precision value from the head
// of the input.
func (s *Scanner) Float32() (float32, error) {
	bits, err := s.Uint32()
	if err != nil {
		return 0, fmt.Errorf("float32: %w", err)
	}
	return math.Float32frombits(bits), nil
}

// U8String scans a string prefixed by a 1-byte length from the head of the
// input.
func (s *Scanner) U8String() (string, error) {
	n, err := s.Byte()
	if err != nil {
		return "", fmt.Errorf("u8 string length: %w", err)
	}
	return s.take(int(n))
}

// U16String scans a string prefixed by a big-endian 2-byte length from the
// head of the input.
func (s *Scanner) U16String() (string, error) {
	n, err := s.Uint16()
	if err != nil {
		return "", fmt.Errorf("u16 string length: %w", err)
	}
	return s.take(int(n))
}

// U32Bytes scans a byte slice prefixed by a big-endian 4-byte length from the
// head of the input. The returned slice aliases the scanner's input.
func (s *Scanner) U32Bytes() ([]byte, error) {
	n, err := s.Uint32()
	if err != nil {
		return nil, fmt.Errorf("u32 bytes length: %w", err)
	}
	return s.Take(int(n))
}

// Take returns exactly n bytes from the head of the input. The returned
// slice aliases the scanner's input.
func (s *Scanner) Take(n int) ([]byte, error) {
	if len(s.rest) < n {
		return nil, fmt.Errorf("value truncated (%d < %d bytes): %w", len(s.rest), n, io.ErrUnexpectedEOF)
	}
	out := s.rest[:n]
	s.rest = s.rest[n:]
	s.offset += n
	return out, nil
}

func (s *Scanner) take(n int) (string, error) {
	out, err := s.Take(n)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Len reports the number of remaining unconsumed input bytes in s.
func (s *Scanner) Len() int { return len(s.rest) }

// Offset reports the offset (0-based) of the next unconsumed input byte.
func (s *Scanner) Offset() int { return s.offset }

// Rest returns the remaining unconsumed input of s. The caller must not
// modify it.
func (s *Scanner) Rest() []byte { return s.rest }

// Done reports whether all of s's input has been consumed, returning an
// error if not.
func (s *Scanner) Done() error {
	if len(s.rest) != 0 {
		return fmt.Errorf("%d unexpected trailing bytes at offset %d", len(s.rest), s.offset)
	}
	return nil
}
