package provider

import (
	"fmt"
	"math"

	"github.com/thinknode/thinknode-provider-ipc-net/frame"
)

// PingTokenLen is the fixed size in bytes of a Ping or Pong body.
const PingTokenLen = 32

// RegisterSubprotocol is the fixed 2-byte sub-identifier that prefixes every
// Register body.
var RegisterSubprotocol = [2]byte{0x00, 0x00}

// PIDLen is the expected length in bytes of the process-correlation
// identifier carried in a Register body.
const PIDLen = 32

// RegisterBody is the payload of a Register frame.
type RegisterBody struct {
	PID string // exactly PIDLen bytes, UTF-8, left as given by the environment
}

// Encode renders r in binary wire format. The total length is always
// len(RegisterSubprotocol)+PIDLen when PID has the expected length.
func (r RegisterBody) Encode() []byte {
	var b frame.Builder
	b.Put(RegisterSubprotocol[:]...)
	b.Put([]byte(r.PID)...)
	return b.Bytes()
}

// DecodeRegisterBody decodes data as a Register body.
func DecodeRegisterBody(data []byte) (RegisterBody, error) {
	s := frame.NewScanner(data)
	sub, err := s.Take(2)
	if err != nil {
		return RegisterBody{}, fmt.Errorf("register subprotocol: %w", err)
	}
	if sub[0] != RegisterSubprotocol[0] || sub[1] != RegisterSubprotocol[1] {
		return RegisterBody{}, fmt.Errorf("unexpected register subprotocol %v", sub)
	}
	pid, err := s.Take(s.Len())
	if err != nil {
		return RegisterBody{}, fmt.Errorf("register pid: %w", err)
	}
	return RegisterBody{PID: string(pid)}, nil
}

// FunctionRequest is the payload of a Function frame.
type FunctionRequest struct {
	Name string
	Args [][]byte // each element is a MessagePack-encoded argument value
}

// Encode renders f in binary wire format.
func (f FunctionRequest) Encode() []byte {
	var b frame.Builder
	b.U8String(f.Name)
	if len(f.Args) > math.MaxUint16 {
		panic("provider: too many arguments for a function request")
	}
	b.Uint16(uint16(len(f.Args)))
	for _, arg := range f.Args {
		b.U32Bytes(arg)
	}
	return b.Bytes()
}

// DecodeFunctionRequest decodes data as a Function body.
func DecodeFunctionRequest(data []byte) (FunctionRequest, error) {
	s := frame.NewScanner(data)
	name, err := s.U8String()
	if err != nil {
		return FunctionRequest{}, fmt.Errorf("function name: %w", err)
	}
	argc, err := s.Uint16()
	if err != nil {
		return FunctionRequest{}, fmt.Errorf("function arg count: %w", err)
	}
	args := make([][]byte, argc)
	for i := range args {
		arg, err := s.U32Bytes()
		if err != nil {
			return FunctionRequest{}, fmt.Errorf("function arg %d: %w", i, err)
		}
		args[i] = arg
	}
	if err := s.Done(); err != nil {
		return FunctionRequest{}, fmt.Errorf("function request: %w", err)
	}
	return FunctionRequest{Name: name, Args: args}, nil
}

// FailureBody is the payload of a Failure frame.
type FailureBody struct {
	Code    string // truncated to 255 bytes on encode
	Message string // truncated to 65535 bytes on encode
}

// Encode renders e in binary wire format, silently truncating an oversize
// code or message per the protocol's boundary rule.
func (e FailureBody) Encode() []byte {
	var b frame.Builder
	b.U8String(truncateUTF8(e.Code, math.MaxUint8))
	b.U16String(truncateUTF8(e.Message, math.MaxUint16))
	return b.Bytes()
}

// DecodeFailureBody decodes data as a Failure body.
func DecodeFailureBody(data []byte) (FailureBody, error) {
	s := frame.NewScanner(data)
	code, err := s.U8String()
	if err != nil {
		return FailureBody{}, fmt.Errorf("failure code: %w", err)
	}
	msg, err := s.U16String()
	if err != nil {
		return FailureBody{}, fmt.Errorf("failure message: %w", err)
	}
	if err := s.Done(); err != nil {
		return FailureBody{}, fmt.Errorf("failure body: %w", err)
	}
	return FailureBody{Code: code, Message: msg}, nil
}

// ProgressBody is the payload of a Progress frame.
type ProgressBody struct {
	Fraction float32 // transmitted as-is; the runtime does not clamp
	Message  string  // truncated to 65535 bytes on encode
}

// Encode renders p in binary wire format.
func (p ProgressBody) Encode() []byte {
	var b frame.Builder
	b.Float32(p.Fraction)
	b.U16String(truncateUTF8(p.Message, math.MaxUint16))
	return b.Bytes()
}

// DecodeProgressBody decodes data as a Progress body.
func DecodeProgressBody(data []byte) (ProgressBody, error) {
	s := frame.NewScanner(data)
	frac, err := s.Float32()
	if err != nil {
		return ProgressBody{}, fmt.Errorf("progress fraction: %w", err)
	}
	msg, err := s.U16String()
	if err != nil {
		return ProgressBody{}, fmt.Errorf("progress message: %w", err)
	}
	if err := s.Done(); err != nil {
		return ProgressBody{}, fmt.Errorf("progress body: %w", err)
	}
	return ProgressBody{Fraction: frac, Message: msg}, nil
}

// truncateUTF8 returns a prefix of s having length no greater than n bytes,
// never splitting a multi-byte UTF-8 encoding.
func truncateUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && s[n-1]&0xc0 == 0x80 { // continuation byte
		n--
	}
	if n > 0 && s[n-1]&0xc0 == 0xc0 { // lead byte of a multibyte rune
		n--
	}
	return s[:n]
}
