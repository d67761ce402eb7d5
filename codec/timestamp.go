package codec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// TimestampExtID is the MessagePack extended type identifier reserved by the
// provider protocol for timestamp values.
const TimestampExtID = 1

// Timestamp is a value of MessagePack extended type TimestampExtID. Its
// binary payload is the millisecond offset from the UNIX epoch, encoded as a
// big-endian signed integer using the smallest of {1, 2, 4, 8} bytes that
// can hold the value. Decoding accepts any of those four widths.
type Timestamp struct {
	time.Time
}

func init() {
	msgpack.RegisterExtEncoder(TimestampExtID, (*Timestamp)(nil), func(e *msgpack.Encoder, v reflect.Value) ([]byte, error) {
		return v.Interface().(*Timestamp).MarshalBinary()
	})
	msgpack.RegisterExtDecoder(TimestampExtID, (*Timestamp)(nil), func(d *msgpack.Decoder, v reflect.Value, extLen int) error {
		b := make([]byte, extLen)
		if err := d.ReadFull(b); err != nil {
			return err
		}
		return v.Interface().(*Timestamp).UnmarshalBinary(b)
	})
}

// MarshalBinary implements encoding.BinaryMarshaler, used by the registered
// extension to produce the payload bytes.
func (t Timestamp) MarshalBinary() ([]byte, error) {
	return encodeMillis(t.Time.UnixMilli()), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, used by the
// registered extension to parse the payload bytes.
func (t *Timestamp) UnmarshalBinary(b []byte) error {
	ms, err := decodeMillis(b)
	if err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// encodeMillis encodes ms as a big-endian signed integer using the smallest
// of {1, 2, 4, 8} bytes that can represent it.
func encodeMillis(ms int64) []byte {
	switch {
	case ms >= -(1<<7) && ms < 1<<7:
		return []byte{byte(ms)}
	case ms >= -(1<<15) && ms < 1<<15:
		return put(ms, 2)
	case ms >= -(1<<31) && ms < 1<<31:
		return put(ms, 4)
	default:
		return put(ms, 8)
	}
}

func put(v int64, n int) []byte {
	buf := make([]byte, n)
	uv := uint64(v)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(uv)
		uv >>= 8
	}
	return buf
}

// decodeMillis decodes a big-endian signed integer of width 1, 2, 4, or 8
// bytes.
func decodeMillis(b []byte) (int64, error) {
	switch len(b) {
	case 1, 2, 4, 8:
	default:
		return 0, fmt.Errorf("codec: invalid timestamp payload width %d", len(b))
	}

	// Sign-extend the leading byte, then shift in the rest big-endian.
	v := int64(int8(b[0]))
	for _, c := range b[1:] {
		v = v<<8 | int64(c)
	}
	return v, nil
}
