package values

import (
	"fmt"
	"time"

	"github.com/codewiresh/cqlwire/primitive"
)

// dateEpoch is the wire value for 1970-01-01: the unsigned day counter is
// centered so that half the range sits on either side of the epoch.
const dateEpoch = 1 << 31

// Date is a CQL date: an unsigned day counter with 1970-01-01 at 2^31.
type Date uint32

// DateOf returns the Date containing the instant t, reckoned in UTC.
func DateOf(t time.Time) Date {
	days := t.Unix() / 86400
	if t.Unix()%86400 < 0 {
		days--
	}
	return Date(days + dateEpoch)
}

// Time returns midnight UTC of the day d denotes.
func (d Date) Time() time.Time {
	days := int64(d) - dateEpoch
	return time.Unix(days*86400, 0).UTC()
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// Duration is a CQL duration: a month, day and nanosecond component carried
// separately because none of them convert into the others. All three
// components must share a sign (or be zero).
type Duration struct {
	Months      int32
	Days        int32
	Nanoseconds int64
}

// Valid reports whether the components all share a sign.
func (d Duration) Valid() bool {
	pos := d.Months > 0 || d.Days > 0 || d.Nanoseconds > 0
	neg := d.Months < 0 || d.Days < 0 || d.Nanoseconds < 0
	return !(pos && neg)
}

func (d Duration) String() string {
	return fmt.Sprintf("%dmo%dd%dns", d.Months, d.Days, d.Nanoseconds)
}

// Durations travel as three zigzag-coded vints. A vint stores its byte count
// in the leading ones of the first byte, so each component is
// self-delimiting.
var vintPrefix = [...]byte{0, 0x80, 0xC0, 0xE0, 0xF0, 0xF8, 0xFC, 0xFE}

func zigzag(v int64) uint64   { return uint64(v<<1) ^ uint64(v>>63) }
func unzigzag(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

func appendVint(p []byte, v int64) []byte {
	u := zigzag(v)
	if u < 0x80 {
		return append(p, byte(u))
	}
	var buf [9]byte
	n := 0
	for x := u; x > 0; x >>= 8 {
		n++
	}
	// The length prefix needs n leading ones; if the top byte of the value
	// collides with them, spill into one more byte.
	if n < 9 && u>>(8*(n-1)) >= uint64(1)<<(8-n) {
		n++
	}
	for i := n - 1; i >= 1; i-- {
		buf[i] = byte(u)
		u >>= 8
	}
	if n == 9 {
		buf[0] = 0xFF
		return append(p, buf[:9]...)
	}
	buf[0] = vintPrefix[n-1] | byte(u)
	return append(p, buf[:n]...)
}

func readVint(r *primitive.Reader) int64 {
	first := r.ReadUint8()
	if r.Err() != nil {
		return 0
	}
	if first < 0x80 {
		return unzigzag(uint64(first))
	}
	extra := 0
	for b := first; b&0x80 != 0; b <<= 1 {
		extra++
	}
	u := uint64(first & (0xFF >> extra))
	for i := 0; i < extra; i++ {
		b := r.ReadUint8()
		if r.Err() != nil {
			return 0
		}
		u = u<<8 | uint64(b)
	}
	return unzigzag(u)
}
