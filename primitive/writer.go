package primitive

import (
	"math"
	"net"
	"sort"

	"github.com/google/uuid"
)

// The append functions mirror the Reader notations. They never fail: length
// bounds are the caller's responsibility and are checked with the
// CheckShortLen/CheckIntLen helpers before building a message, so that a
// constraint violation surfaces before any bytes are produced.

// CheckShortLen verifies that n fits a [short] length prefix.
func CheckShortLen(what string, n int) error {
	if n > math.MaxUint16 {
		return Constraintf("%s length %d exceeds unsigned 16-bit prefix", what, n)
	}
	return nil
}

// CheckIntLen verifies that n fits a signed [int] length prefix.
func CheckIntLen(what string, n int) error {
	if n > math.MaxInt32 {
		return Constraintf("%s length %d exceeds signed 32-bit prefix", what, n)
	}
	return nil
}

func AppendByte(p []byte, b byte) []byte {
	return append(p, b)
}

func AppendShort(p []byte, n uint16) []byte {
	return append(p, byte(n>>8), byte(n))
}

func AppendInt(p []byte, n int32) []byte {
	return append(p, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func AppendUint(p []byte, n uint32) []byte {
	return append(p, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func AppendLong(p []byte, n int64) []byte {
	return append(p,
		byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
		byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func AppendString(p []byte, s string) []byte {
	p = AppendShort(p, uint16(len(s)))
	return append(p, s...)
}

func AppendLongString(p []byte, s string) []byte {
	p = AppendInt(p, int32(len(s)))
	return append(p, s...)
}

// AppendBytes writes the [bytes] notation; nil writes the null prefix -1.
func AppendBytes(p []byte, b []byte) []byte {
	if b == nil {
		return AppendInt(p, -1)
	}
	p = AppendInt(p, int32(len(b)))
	return append(p, b...)
}

// AppendValue writes a [value] cell including the null/not-set sentinels.
func AppendValue(p []byte, v Value) []byte {
	switch v.Kind {
	case Null:
		return AppendInt(p, -1)
	case NotSet:
		return AppendInt(p, -2)
	}
	p = AppendInt(p, int32(len(v.Data)))
	return append(p, v.Data...)
}

func AppendShortBytes(p []byte, b []byte) []byte {
	p = AppendShort(p, uint16(len(b)))
	return append(p, b...)
}

func AppendUUID(p []byte, u uuid.UUID) []byte {
	return append(p, u[:]...)
}

// AppendInetAddr writes the [inetaddr] notation. The address must already
// be in its canonical 4- or 16-byte form.
func AppendInetAddr(p []byte, ip net.IP) []byte {
	p = append(p, byte(len(ip)))
	return append(p, ip...)
}

func AppendInet(p []byte, ip net.IP, port int32) []byte {
	p = AppendInetAddr(p, ip)
	return AppendInt(p, port)
}

func AppendConsistency(p []byte, c Consistency) []byte {
	return AppendShort(p, uint16(c))
}

func AppendStringList(p []byte, l []string) []byte {
	p = AppendShort(p, uint16(len(l)))
	for _, s := range l {
		p = AppendString(p, s)
	}
	return p
}

// Map notations are written with sorted keys so that encoding the same map
// twice produces the same bytes.
func AppendStringMap(p []byte, m map[string]string) []byte {
	p = AppendShort(p, uint16(len(m)))
	for _, k := range sortedKeys(m) {
		p = AppendString(p, k)
		p = AppendString(p, m[k])
	}
	return p
}

func AppendStringMultiMap(p []byte, m map[string][]string) []byte {
	p = AppendShort(p, uint16(len(m)))
	for _, k := range sortedKeys(m) {
		p = AppendString(p, k)
		p = AppendStringList(p, m[k])
	}
	return p
}

func AppendBytesMap(p []byte, m map[string][]byte) []byte {
	p = AppendShort(p, uint16(len(m)))
	for _, k := range sortedKeys(m) {
		p = AppendString(p, k)
		p = AppendBytes(p, m[k])
	}
	return p
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
