package primitive

import (
	"net"

	"github.com/google/uuid"
)

// Reader is a sticky-error cursor over a caller-owned byte slice. After the
// first failed read every further method returns the zero value, so parse
// code can run straight-line and check Err once at the end. Reader never
// copies payload bytes except where the notation requires ownership (inet
// addresses, uuids).
type Reader struct {
	buf []byte
	err error
}

func NewReader(p []byte) *Reader {
	return &Reader{buf: p}
}

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) }

// Rest consumes and returns all unread bytes.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	rest := r.buf
	r.buf = nil
	return rest
}

func (r *Reader) fail(what string, want int) {
	if r.err == nil {
		r.err = Malformedf("truncated %s: want %d bytes, have %d", what, want, len(r.buf))
	}
}

func (r *Reader) take(what string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.fail(what, n)
		return nil
	}
	p := r.buf[:n]
	r.buf = r.buf[n:]
	return p
}

// ReadUint8 reads the single-byte [byte] notation.
func (r *Reader) ReadUint8() byte {
	p := r.take("byte", 1)
	if p == nil {
		return 0
	}
	return p[0]
}

// ReadShort reads the [short] notation, an unsigned 2-byte integer.
func (r *Reader) ReadShort() uint16 {
	p := r.take("short", 2)
	if p == nil {
		return 0
	}
	return uint16(p[0])<<8 | uint16(p[1])
}

// ReadInt reads the [int] notation, a signed 4-byte integer.
func (r *Reader) ReadInt() int32 {
	p := r.take("int", 4)
	if p == nil {
		return 0
	}
	return int32(uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]))
}

// ReadUint reads an unsigned 4-byte integer (used by v5 flag words).
func (r *Reader) ReadUint() uint32 {
	return uint32(r.ReadInt())
}

// ReadLong reads the [long] notation, a signed 8-byte integer.
func (r *Reader) ReadLong() int64 {
	p := r.take("long", 8)
	if p == nil {
		return 0
	}
	return int64(uint64(p[0])<<56 | uint64(p[1])<<48 | uint64(p[2])<<40 | uint64(p[3])<<32 |
		uint64(p[4])<<24 | uint64(p[5])<<16 | uint64(p[6])<<8 | uint64(p[7]))
}

// ReadString reads the [string] notation, a short-prefixed UTF-8 string.
func (r *Reader) ReadString() string {
	n := int(r.ReadShort())
	p := r.take("string", n)
	return string(p)
}

// ReadLongString reads the [long string] notation, an int-prefixed string.
func (r *Reader) ReadLongString() string {
	n := r.ReadInt()
	if r.err == nil && n < 0 {
		r.err = Malformedf("negative long string length %d", n)
		return ""
	}
	p := r.take("long string", int(n))
	return string(p)
}

// ReadBytes reads the [bytes] notation. A negative length yields nil.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadInt()
	if r.err != nil || n < 0 {
		return nil
	}
	return r.take("bytes", int(n))
}

// ReadValue reads a [value]: length prefix -1 is null, -2 is not-set, any
// other negative length is malformed.
func (r *Reader) ReadValue() Value {
	n := r.ReadInt()
	if r.err != nil {
		return Value{}
	}
	switch {
	case n == int32(Null):
		return NullValue()
	case n == int32(NotSet):
		return NotSetValue()
	case n < 0:
		r.err = Malformedf("invalid value length prefix %d", n)
		return Value{}
	}
	return BytesValue(r.take("value", int(n)))
}

// ReadShortBytes reads the [short bytes] notation.
func (r *Reader) ReadShortBytes() []byte {
	n := int(r.ReadShort())
	return r.take("short bytes", n)
}

// ReadUUID reads 16 raw uuid bytes.
func (r *Reader) ReadUUID() uuid.UUID {
	p := r.take("uuid", 16)
	if p == nil {
		return uuid.UUID{}
	}
	var u uuid.UUID
	copy(u[:], p)
	return u
}

// ReadInetAddr reads the [inetaddr] notation: one size byte (4 or 16)
// followed by that many address bytes.
func (r *Reader) ReadInetAddr() net.IP {
	size := r.ReadUint8()
	if r.err != nil {
		return nil
	}
	if size != 4 && size != 16 {
		r.err = Malformedf("invalid inet address size %d", size)
		return nil
	}
	p := r.take("inetaddr", int(size))
	if p == nil {
		return nil
	}
	ip := make(net.IP, size)
	copy(ip, p)
	return ip
}

// ReadInet reads the [inet] notation: an [inetaddr] followed by an [int]
// port.
func (r *Reader) ReadInet() (net.IP, int32) {
	ip := r.ReadInetAddr()
	port := r.ReadInt()
	return ip, port
}

// ReadConsistency reads the [consistency] notation.
func (r *Reader) ReadConsistency() Consistency {
	return Consistency(r.ReadShort())
}

// ReadStringList reads the [string list] notation.
func (r *Reader) ReadStringList() []string {
	n := int(r.ReadShort())
	if r.err != nil {
		return nil
	}
	l := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l = append(l, r.ReadString())
	}
	if r.err != nil {
		return nil
	}
	return l
}

// ReadStringMap reads the [string map] notation.
func (r *Reader) ReadStringMap() map[string]string {
	n := int(r.ReadShort())
	if r.err != nil {
		return nil
	}
	m := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k := r.ReadString()
		v := r.ReadString()
		if r.err != nil {
			return nil
		}
		m[k] = v
	}
	return m
}

// ReadStringMultiMap reads the [string multimap] notation.
func (r *Reader) ReadStringMultiMap() map[string][]string {
	n := int(r.ReadShort())
	if r.err != nil {
		return nil
	}
	m := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		k := r.ReadString()
		v := r.ReadStringList()
		if r.err != nil {
			return nil
		}
		m[k] = v
	}
	return m
}

// ReadBytesMap reads the [bytes map] notation.
func (r *Reader) ReadBytesMap() map[string][]byte {
	n := int(r.ReadShort())
	if r.err != nil {
		return nil
	}
	m := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		k := r.ReadString()
		v := r.ReadBytes()
		if r.err != nil {
			return nil
		}
		m[k] = v
	}
	return m
}
