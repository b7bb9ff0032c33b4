package values

import (
	"math"
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"github.com/codewiresh/cqlwire/primitive"
)

// Marshal encodes v against the descriptor t and returns the value payload,
// without any length prefix. The zero-length payload is valid for several
// types and is distinct from Null, which only exists at the cell level (see
// MarshalValue).
func Marshal(t ColumnType, v any) ([]byte, error) {
	return appendMarshalled(nil, t, v)
}

// MarshalValue encodes v into a cell. A nil v becomes Null; a
// primitive.Value passes through untouched so callers can inject NotSet or
// pre-encoded bytes.
func MarshalValue(t ColumnType, v any) (primitive.Value, error) {
	if v == nil {
		return primitive.NullValue(), nil
	}
	if pv, ok := v.(primitive.Value); ok {
		return pv, nil
	}
	p, err := Marshal(t, v)
	if err != nil {
		return primitive.Value{}, err
	}
	return primitive.BytesValue(p), nil
}

func badCarrier(t ColumnType, v any) error {
	return primitive.Constraintf("cannot encode %T as %s", v, t)
}

func appendMarshalled(p []byte, t ColumnType, v any) ([]byte, error) {
	switch t.Kind {
	case TypeAscii, TypeVarchar:
		switch v := v.(type) {
		case string:
			return append(p, v...), nil
		case []byte:
			return append(p, v...), nil
		}
	case TypeBlob, TypeCustom:
		switch v := v.(type) {
		case []byte:
			return append(p, v...), nil
		case string:
			return append(p, v...), nil
		}
	case TypeBigint, TypeCounter:
		switch v := v.(type) {
		case int64:
			return primitive.AppendLong(p, v), nil
		case int:
			return primitive.AppendLong(p, int64(v)), nil
		}
	case TypeInt:
		switch v := v.(type) {
		case int32:
			return primitive.AppendInt(p, v), nil
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, primitive.Constraintf("%d overflows int", v)
			}
			return primitive.AppendInt(p, int32(v)), nil
		}
	case TypeSmallint:
		switch v := v.(type) {
		case int16:
			return primitive.AppendShort(p, uint16(v)), nil
		case int:
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, primitive.Constraintf("%d overflows smallint", v)
			}
			return primitive.AppendShort(p, uint16(int16(v))), nil
		}
	case TypeTinyint:
		switch v := v.(type) {
		case int8:
			return append(p, byte(v)), nil
		case int:
			if v < math.MinInt8 || v > math.MaxInt8 {
				return nil, primitive.Constraintf("%d overflows tinyint", v)
			}
			return append(p, byte(int8(v))), nil
		}
	case TypeBoolean:
		if v, ok := v.(bool); ok {
			if v {
				return append(p, 1), nil
			}
			return append(p, 0), nil
		}
	case TypeDouble:
		if v, ok := v.(float64); ok {
			return primitive.AppendLong(p, int64(math.Float64bits(v))), nil
		}
	case TypeFloat:
		if v, ok := v.(float32); ok {
			return primitive.AppendUint(p, math.Float32bits(v)), nil
		}
	case TypeTimestamp:
		switch v := v.(type) {
		case time.Time:
			return primitive.AppendLong(p, v.UnixMilli()), nil
		case int64:
			return primitive.AppendLong(p, v), nil
		}
	case TypeDate:
		switch v := v.(type) {
		case Date:
			return primitive.AppendUint(p, uint32(v)), nil
		case time.Time:
			return primitive.AppendUint(p, uint32(DateOf(v))), nil
		}
	case TypeTime:
		var ns int64
		switch v := v.(type) {
		case time.Duration:
			ns = int64(v)
		case int64:
			ns = v
		default:
			return nil, badCarrier(t, v)
		}
		if ns < 0 || ns >= 24*int64(time.Hour) {
			return nil, primitive.Constraintf("time %d ns outside a day", ns)
		}
		return primitive.AppendLong(p, ns), nil
	case TypeDuration:
		var d Duration
		switch v := v.(type) {
		case Duration:
			d = v
		case time.Duration:
			d = Duration{Nanoseconds: int64(v)}
		default:
			return nil, badCarrier(t, v)
		}
		if !d.Valid() {
			return nil, primitive.Constraintf("duration components disagree on sign: %s", d)
		}
		p = appendVint(p, int64(d.Months))
		p = appendVint(p, int64(d.Days))
		return appendVint(p, d.Nanoseconds), nil
	case TypeUUID, TypeTimeUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return append(p, v[:]...), nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, primitive.Constraintf("bad uuid %q: %v", v, err)
			}
			return append(p, id[:]...), nil
		}
	case TypeInet:
		var ip net.IP
		switch v := v.(type) {
		case net.IP:
			ip = v
		case string:
			ip = net.ParseIP(v)
			if ip == nil {
				return nil, primitive.Constraintf("bad inet %q", v)
			}
		default:
			return nil, badCarrier(t, v)
		}
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		if len(ip) != 4 && len(ip) != 16 {
			return nil, primitive.Constraintf("inet address is %d bytes", len(ip))
		}
		p = append(p, byte(len(ip)))
		return append(p, ip...), nil
	case TypeVarint:
		switch v := v.(type) {
		case *big.Int:
			return appendBigInt(p, v), nil
		case int64:
			return appendBigInt(p, big.NewInt(v)), nil
		case int:
			return appendBigInt(p, big.NewInt(int64(v))), nil
		}
	case TypeDecimal:
		if v, ok := v.(*inf.Dec); ok {
			p = primitive.AppendInt(p, int32(v.Scale()))
			return appendBigInt(p, v.UnscaledBig()), nil
		}
	case TypeList, TypeSet:
		if v, ok := v.([]any); ok {
			return appendCollection(p, *t.Elem, v)
		}
	case TypeMap:
		if v, ok := v.([]MapEntry); ok {
			p = primitive.AppendInt(p, int32(len(v)))
			var err error
			for _, e := range v {
				if p, err = appendElement(p, *t.Key, e.Key); err != nil {
					return nil, err
				}
				if p, err = appendElement(p, *t.Elem, e.Value); err != nil {
					return nil, err
				}
			}
			return p, nil
		}
	case TypeTuple:
		if v, ok := v.([]any); ok {
			if len(v) != len(t.Tuple) {
				return nil, primitive.Constraintf("tuple has %d fields, got %d values", len(t.Tuple), len(v))
			}
			var err error
			for i, fv := range v {
				if p, err = appendElement(p, t.Tuple[i], fv); err != nil {
					return nil, err
				}
			}
			return p, nil
		}
	case TypeUDT:
		if v, ok := v.([]any); ok {
			if len(v) > len(t.UDT.Fields) {
				return nil, primitive.Constraintf("%s has %d fields, got %d values", t, len(t.UDT.Fields), len(v))
			}
			var err error
			for i, fv := range v {
				if p, err = appendElement(p, t.UDT.Fields[i].Type, fv); err != nil {
					return nil, err
				}
			}
			return p, nil
		}
	default:
		return nil, primitive.Constraintf("cannot encode %s", t.Kind)
	}
	return nil, badCarrier(t, v)
}

func appendCollection(p []byte, elem ColumnType, v []any) ([]byte, error) {
	p = primitive.AppendInt(p, int32(len(v)))
	var err error
	for _, e := range v {
		if p, err = appendElement(p, elem, e); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// appendElement writes one length-prefixed collection element or tuple/UDT
// field. A nil element encodes as Null; NotSet is not valid inside values.
func appendElement(p []byte, t ColumnType, v any) ([]byte, error) {
	if v == nil {
		return primitive.AppendInt(p, -1), nil
	}
	body, err := appendMarshalled(nil, t, v)
	if err != nil {
		return nil, err
	}
	if err := primitive.CheckIntLen("element", len(body)); err != nil {
		return nil, err
	}
	p = primitive.AppendInt(p, int32(len(body)))
	return append(p, body...), nil
}

// MapEntry is one key/value pair of a CQL map. Maps decode to an entry slice
// in wire order so that re-encoding reproduces the original bytes; a Go map
// would shuffle them.
type MapEntry struct {
	Key   any
	Value any
}
