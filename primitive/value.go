package primitive

import "encoding/hex"

// ValueKind tags the three states a [value] can take on the wire. The
// numeric values match the wire length-prefix sentinels.
type ValueKind int8

const (
	Present ValueKind = 0
	Null    ValueKind = -1
	NotSet  ValueKind = -2
)

// Value is one wire cell: null, not-set, or a byte payload whose meaning
// comes from an external type descriptor. NotSet is legal only in bound
// query parameters; a decoder producing result cells must reject it.
type Value struct {
	Kind ValueKind
	Data []byte
}

// NullValue returns the null cell.
func NullValue() Value { return Value{Kind: Null} }

// NotSetValue returns the not-set sentinel cell ("server, ignore this
// parameter"). Distinct from Null, which writes an explicit null.
func NotSetValue() Value { return Value{Kind: NotSet} }

// BytesValue returns a present cell carrying b. A nil slice is still a
// present, zero-length cell; use NullValue for null.
func BytesValue(b []byte) Value { return Value{Kind: Present, Data: b} }

func (v Value) IsNull() bool   { return v.Kind == Null }
func (v Value) IsNotSet() bool { return v.Kind == NotSet }

func (v Value) String() string {
	switch v.Kind {
	case Null:
		return "null"
	case NotSet:
		return "notset"
	default:
		return "0x" + hex.EncodeToString(v.Data)
	}
}
