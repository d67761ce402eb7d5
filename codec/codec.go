// Package codec bridges the provider's typed argument and result values to
// a MessagePack wire encoding. It delegates all per-value encoding and
// decoding to github.com/vmihailenco/msgpack/v5, configured to use map-form
// encoding for records (field name -> value) and a custom extended type for
// timestamps (see Timestamp).
//
// The adapter is always given a static Go type by its caller — via the
// generic Encode and Decode functions — and is never asked to guess a type
// from bytes alone.
package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode renders v as a MessagePack value.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(false) // map-form: field name -> value
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Decode parses data as a MessagePack value of type T.
//
// A parse failure is reported as a *DecodeError whose Kind is "Decode", per
// the provider's error handling design; the caller's Failure frame code and
// message are derived directly from that error.
func Decode[T any](data []byte) (T, error) {
	var out T
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return out, &DecodeError{Kind: "Decode", Message: fmt.Sprintf("decode %T: %v", out, err)}
	}
	return out, nil
}

// DecodeError reports a failure to decode a value via the codec. Its Kind
// becomes the code of a derived Failure frame.
type DecodeError struct {
	Kind    string
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

// FailureCode implements the failureCoder interface used by the dispatcher
// to pick a Failure frame's code.
func (e *DecodeError) FailureCode() string { return e.Kind }
