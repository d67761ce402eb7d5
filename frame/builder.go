package frame

import (
	"encoding/binary"
	"math"

	"github.com/creachadair/mds/value"
)

// A Builder is a buffer that accumulates the body of a frame. The zero value
// is ready for use as an empty builder.
type Builder struct {
	buf []byte
}

// Bool appends a Boolean to b as a single byte with value 0 or 1.
func (b *Builder) Bool(ok bool) { b.Byte(value.Cond[byte](ok, 1, 0)) }

// Byte appends a single byte to b.
func (b *Builder) Byte(v byte) { b.buf = append(b.buf, v) }

// Put appends raw bytes to b in order, without a length prefix.
func (b *Builder) Put(vs ...byte) { b.buf = append(b.buf, vs...) }

// Uint16 appends v to b in big-endian order.
func (b *Builder) Uint16(v uint16) { b.buf = binary.BigEndian.AppendUint16(b.buf, v) }

// Uint32 appends v to b in big-endian order.
func (b *Builder) Uint32(v uint32) { b.buf = binary.BigEndian.AppendUint32(b.buf, v) }

// Float32 appends v to b in big-endian order.
func (b *Builder) Float32(v float32) {
	b.Uint32(math.Float32bits(v))
}

// U8String appends a string prefixed by a 1-byte length. It panics if s is
// longer than 255 bytes; callers that must tolerate long input should
// truncate before calling this method.
func (b *Builder) U8String(s string) {
	if len(s) > math.MaxUint8 {
		panic("frame: string too long for a u8-prefixed field")
	}
	b.Byte(byte(len(s)))
	b.buf = append(b.buf, s...)
}

// U16String appends a string prefixed by a big-endian 2-byte length. It
// panics if s is longer than 65535 bytes.
func (b *Builder) U16String(s string) {
	if len(s) > math.MaxUint16 {
		panic("frame: string too long for a u16-prefixed field")
	}
	b.Uint16(uint16(len(s)))
	b.buf = append(b.buf, s...)
}

// U32Bytes appends a byte slice prefixed by a big-endian 4-byte length.
func (b *Builder) U32Bytes(v []byte) {
	b.Uint32(uint32(len(v)))
	b.buf = append(b.buf, v...)
}

// Len reports the number of bytes currently in the buffer.
func (b *Builder) Len() int { return len(b.buf) }

// Bytes reports the current contents of the buffer. The builder retains
// ownership of the reported slice; the caller must not modify it unless b
// will no longer be accessed.
func (b *Builder) Bytes() []byte { return b.buf }

// Reset discards the contents of b and leaves it empty.
func (b *Builder) Reset() { b.buf = b.buf[:0] }

// Grow resizes the internal buffer of b if necessary to ensure that at least
// n more bytes can be added without triggering another allocation.
func (b *Builder) Grow(n int) {
	want := len(b.buf) + n
	if cap(b.buf) < want {
		r := make([]byte, len(b.buf), max(want, 2*cap(b.buf)))
		copy(r, b.buf)
		b.buf = r
	}
}
