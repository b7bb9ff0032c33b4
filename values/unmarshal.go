package values

import (
	"math"
	"net"
	"time"

	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"github.com/codewiresh/cqlwire/primitive"
)

// Unmarshal decodes a value payload against the descriptor t into its
// canonical Go carrier. The payload must be consumed exactly; trailing bytes
// are malformed. The returned carrier never aliases data.
func Unmarshal(t ColumnType, data []byte) (any, error) {
	switch t.Kind {
	case TypeAscii, TypeVarchar:
		return string(data), nil
	case TypeBlob, TypeCustom:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case TypeBigint, TypeCounter:
		if len(data) != 8 {
			return nil, primitive.Malformedf("%s needs 8 bytes, got %d", t.Kind, len(data))
		}
		return readInt64(data), nil
	case TypeInt:
		if len(data) != 4 {
			return nil, primitive.Malformedf("int needs 4 bytes, got %d", len(data))
		}
		return int32(readUint32(data)), nil
	case TypeSmallint:
		if len(data) != 2 {
			return nil, primitive.Malformedf("smallint needs 2 bytes, got %d", len(data))
		}
		return int16(uint16(data[0])<<8 | uint16(data[1])), nil
	case TypeTinyint:
		if len(data) != 1 {
			return nil, primitive.Malformedf("tinyint needs 1 byte, got %d", len(data))
		}
		return int8(data[0]), nil
	case TypeBoolean:
		if len(data) != 1 {
			return nil, primitive.Malformedf("boolean needs 1 byte, got %d", len(data))
		}
		return data[0] != 0, nil
	case TypeDouble:
		if len(data) != 8 {
			return nil, primitive.Malformedf("double needs 8 bytes, got %d", len(data))
		}
		return math.Float64frombits(uint64(readInt64(data))), nil
	case TypeFloat:
		if len(data) != 4 {
			return nil, primitive.Malformedf("float needs 4 bytes, got %d", len(data))
		}
		return math.Float32frombits(readUint32(data)), nil
	case TypeTimestamp:
		if len(data) != 8 {
			return nil, primitive.Malformedf("timestamp needs 8 bytes, got %d", len(data))
		}
		return time.UnixMilli(readInt64(data)).UTC(), nil
	case TypeDate:
		if len(data) != 4 {
			return nil, primitive.Malformedf("date needs 4 bytes, got %d", len(data))
		}
		return Date(readUint32(data)), nil
	case TypeTime:
		if len(data) != 8 {
			return nil, primitive.Malformedf("time needs 8 bytes, got %d", len(data))
		}
		ns := readInt64(data)
		if ns < 0 || ns >= 24*int64(time.Hour) {
			return nil, primitive.Malformedf("time %d ns outside a day", ns)
		}
		return time.Duration(ns), nil
	case TypeDuration:
		r := primitive.NewReader(data)
		months := readVint(r)
		days := readVint(r)
		nanos := readVint(r)
		if err := r.Err(); err != nil {
			return nil, err
		}
		if r.Remaining() != 0 {
			return nil, primitive.Malformedf("%d trailing bytes after duration", r.Remaining())
		}
		if months < math.MinInt32 || months > math.MaxInt32 || days < math.MinInt32 || days > math.MaxInt32 {
			return nil, primitive.Malformedf("duration month/day component overflows")
		}
		d := Duration{Months: int32(months), Days: int32(days), Nanoseconds: nanos}
		if !d.Valid() {
			return nil, primitive.Malformedf("duration components disagree on sign: %s", d)
		}
		return d, nil
	case TypeUUID, TypeTimeUUID:
		if len(data) != 16 {
			return nil, primitive.Malformedf("uuid needs 16 bytes, got %d", len(data))
		}
		var id uuid.UUID
		copy(id[:], data)
		return id, nil
	case TypeInet:
		if len(data) == 0 {
			return nil, primitive.Malformedf("empty inet")
		}
		size := int(data[0])
		if size != 4 && size != 16 {
			return nil, primitive.Malformedf("inet address size %d", size)
		}
		if len(data) != 1+size {
			return nil, primitive.Malformedf("inet needs %d bytes, got %d", 1+size, len(data))
		}
		ip := make(net.IP, size)
		copy(ip, data[1:])
		return ip, nil
	case TypeVarint:
		return bigIntFromBytes(data), nil
	case TypeDecimal:
		if len(data) < 4 {
			return nil, primitive.Malformedf("decimal needs at least 4 bytes, got %d", len(data))
		}
		scale := int32(readUint32(data[:4]))
		return inf.NewDecBig(bigIntFromBytes(data[4:]), inf.Scale(scale)), nil
	case TypeList, TypeSet:
		r := primitive.NewReader(data)
		n := r.ReadInt()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, primitive.Malformedf("negative %s size %d", t.Kind, n)
		}
		out := make([]any, 0, min(int(n), 1<<16))
		for i := int32(0); i < n; i++ {
			e, err := readElement(r, *t.Elem)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, finish(r)
	case TypeMap:
		r := primitive.NewReader(data)
		n := r.ReadInt()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, primitive.Malformedf("negative map size %d", n)
		}
		out := make([]MapEntry, 0, min(int(n), 1<<16))
		for i := int32(0); i < n; i++ {
			k, err := readElement(r, *t.Key)
			if err != nil {
				return nil, err
			}
			v, err := readElement(r, *t.Elem)
			if err != nil {
				return nil, err
			}
			out = append(out, MapEntry{Key: k, Value: v})
		}
		return out, finish(r)
	case TypeTuple:
		r := primitive.NewReader(data)
		out := make([]any, 0, len(t.Tuple))
		for _, ft := range t.Tuple {
			e, err := readElement(r, ft)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, finish(r)
	case TypeUDT:
		r := primitive.NewReader(data)
		out := make([]any, 0, len(t.UDT.Fields))
		for _, f := range t.UDT.Fields {
			// Trailing fields may be absent entirely when the value predates
			// an ALTER TYPE; they read as Null.
			if r.Remaining() == 0 {
				out = append(out, nil)
				continue
			}
			e, err := readElement(r, f.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, finish(r)
	}
	return nil, primitive.Malformedf("cannot decode %s", t.Kind)
}

// readElement reads one length-prefixed element. Null elements decode to
// nil; NotSet never appears inside a value.
func readElement(r *primitive.Reader, t ColumnType) (any, error) {
	v := r.ReadValue()
	if err := r.Err(); err != nil {
		return nil, err
	}
	switch v.Kind {
	case primitive.Null:
		return nil, nil
	case primitive.NotSet:
		return nil, primitive.Malformedf("not-set marker inside a value")
	}
	return Unmarshal(t, v.Data)
}

func finish(r *primitive.Reader) error {
	if err := r.Err(); err != nil {
		return err
	}
	if n := r.Remaining(); n != 0 {
		return primitive.Malformedf("%d trailing bytes after value", n)
	}
	return nil
}

func readInt64(p []byte) int64 {
	return int64(uint64(p[0])<<56 | uint64(p[1])<<48 | uint64(p[2])<<40 | uint64(p[3])<<32 |
		uint64(p[4])<<24 | uint64(p[5])<<16 | uint64(p[6])<<8 | uint64(p[7]))
}

func readUint32(p []byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}
