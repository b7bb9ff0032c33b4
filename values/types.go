// Package values implements the CQL value codec: encoding and decoding of
// every scalar, collection, tuple and user-defined-type value against an
// explicit type descriptor. The descriptor always comes from outside (query
// metadata, schema); raw bytes alone never determine a type.
//
// Decoding yields canonical Go carriers (string, int64, uuid.UUID, ...);
// encoding accepts the canonical carrier plus a few obvious widenings.
// Round-trips are bit-exact: Marshal(t, Unmarshal(t, b)) reproduces b for
// every well-formed b, which is why maps decode to an ordered entry slice
// rather than a Go map.
package values

import (
	"fmt"

	"github.com/codewiresh/cqlwire/primitive"
)

// Kind is the numeric type tag from the wire [option] notation.
type Kind uint16

const (
	TypeCustom    Kind = 0x0000
	TypeAscii     Kind = 0x0001
	TypeBigint    Kind = 0x0002
	TypeBlob      Kind = 0x0003
	TypeBoolean   Kind = 0x0004
	TypeCounter   Kind = 0x0005
	TypeDecimal   Kind = 0x0006
	TypeDouble    Kind = 0x0007
	TypeFloat     Kind = 0x0008
	TypeInt       Kind = 0x0009
	TypeTimestamp Kind = 0x000B
	TypeUUID      Kind = 0x000C
	TypeVarchar   Kind = 0x000D
	TypeVarint    Kind = 0x000E
	TypeTimeUUID  Kind = 0x000F
	TypeInet      Kind = 0x0010
	TypeDate      Kind = 0x0011
	TypeTime      Kind = 0x0012
	TypeSmallint  Kind = 0x0013
	TypeTinyint   Kind = 0x0014
	TypeDuration  Kind = 0x0015
	TypeList      Kind = 0x0020
	TypeMap       Kind = 0x0021
	TypeSet       Kind = 0x0022
	TypeUDT       Kind = 0x0030
	TypeTuple     Kind = 0x0031
)

func (k Kind) String() string {
	switch k {
	case TypeCustom:
		return "custom"
	case TypeAscii:
		return "ascii"
	case TypeBigint:
		return "bigint"
	case TypeBlob:
		return "blob"
	case TypeBoolean:
		return "boolean"
	case TypeCounter:
		return "counter"
	case TypeDecimal:
		return "decimal"
	case TypeDouble:
		return "double"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeTimestamp:
		return "timestamp"
	case TypeUUID:
		return "uuid"
	case TypeVarchar:
		return "varchar"
	case TypeVarint:
		return "varint"
	case TypeTimeUUID:
		return "timeuuid"
	case TypeInet:
		return "inet"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeSmallint:
		return "smallint"
	case TypeTinyint:
		return "tinyint"
	case TypeDuration:
		return "duration"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	case TypeSet:
		return "set"
	case TypeUDT:
		return "udt"
	case TypeTuple:
		return "tuple"
	default:
		return fmt.Sprintf("unknown_type_0x%04X", uint16(k))
	}
}

// ColumnType is a closed type descriptor. Exactly the fields implied by
// Kind are set: Elem for list/set, Key+Elem for map, Tuple for tuple, UDT
// for udt, Custom for custom.
type ColumnType struct {
	Kind   Kind
	Custom string
	Key    *ColumnType
	Elem   *ColumnType
	Tuple  []ColumnType
	UDT    *UDTType
}

// UDTType describes a user-defined type: an ordered field list scoped to a
// keyspace.
type UDTType struct {
	Keyspace string
	Name     string
	Fields   []UDTField
}

// UDTField is one named, typed UDT field.
type UDTField struct {
	Name string
	Type ColumnType
}

// Primitive returns the descriptor for a non-parameterized kind.
func Primitive(k Kind) ColumnType { return ColumnType{Kind: k} }

// List returns a list<elem> descriptor.
func List(elem ColumnType) ColumnType {
	return ColumnType{Kind: TypeList, Elem: &elem}
}

// Set returns a set<elem> descriptor.
func Set(elem ColumnType) ColumnType {
	return ColumnType{Kind: TypeSet, Elem: &elem}
}

// Map returns a map<key, value> descriptor.
func Map(key, value ColumnType) ColumnType {
	return ColumnType{Kind: TypeMap, Key: &key, Elem: &value}
}

// Tuple returns a tuple<elems...> descriptor.
func Tuple(elems ...ColumnType) ColumnType {
	return ColumnType{Kind: TypeTuple, Tuple: elems}
}

func (t ColumnType) String() string {
	switch t.Kind {
	case TypeCustom:
		return fmt.Sprintf("custom(%s)", t.Custom)
	case TypeList:
		return fmt.Sprintf("list<%s>", t.Elem)
	case TypeSet:
		return fmt.Sprintf("set<%s>", t.Elem)
	case TypeMap:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Elem)
	case TypeTuple:
		s := "tuple<"
		for i, e := range t.Tuple {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ">"
	case TypeUDT:
		if t.UDT != nil {
			return fmt.Sprintf("udt(%s.%s)", t.UDT.Keyspace, t.UDT.Name)
		}
		return "udt"
	default:
		return t.Kind.String()
	}
}

// ReadType reads the [option] notation used by result metadata.
func ReadType(r *primitive.Reader) ColumnType {
	kind := Kind(r.ReadShort())
	if r.Err() != nil {
		return ColumnType{}
	}
	switch kind {
	case TypeCustom:
		return ColumnType{Kind: TypeCustom, Custom: r.ReadString()}
	case TypeList, TypeSet:
		elem := ReadType(r)
		return ColumnType{Kind: kind, Elem: &elem}
	case TypeMap:
		key := ReadType(r)
		elem := ReadType(r)
		return ColumnType{Kind: TypeMap, Key: &key, Elem: &elem}
	case TypeTuple:
		n := int(r.ReadShort())
		elems := make([]ColumnType, 0, n)
		for i := 0; i < n; i++ {
			elems = append(elems, ReadType(r))
		}
		return ColumnType{Kind: TypeTuple, Tuple: elems}
	case TypeUDT:
		udt := &UDTType{
			Keyspace: r.ReadString(),
			Name:     r.ReadString(),
		}
		n := int(r.ReadShort())
		udt.Fields = make([]UDTField, 0, n)
		for i := 0; i < n; i++ {
			udt.Fields = append(udt.Fields, UDTField{
				Name: r.ReadString(),
				Type: ReadType(r),
			})
		}
		return ColumnType{Kind: TypeUDT, UDT: udt}
	}
	return ColumnType{Kind: kind}
}

// AppendType writes the [option] notation for t.
func AppendType(p []byte, t ColumnType) []byte {
	p = primitive.AppendShort(p, uint16(t.Kind))
	switch t.Kind {
	case TypeCustom:
		p = primitive.AppendString(p, t.Custom)
	case TypeList, TypeSet:
		p = AppendType(p, *t.Elem)
	case TypeMap:
		p = AppendType(p, *t.Key)
		p = AppendType(p, *t.Elem)
	case TypeTuple:
		p = primitive.AppendShort(p, uint16(len(t.Tuple)))
		for _, e := range t.Tuple {
			p = AppendType(p, e)
		}
	case TypeUDT:
		p = primitive.AppendString(p, t.UDT.Keyspace)
		p = primitive.AppendString(p, t.UDT.Name)
		p = primitive.AppendShort(p, uint16(len(t.UDT.Fields)))
		for _, f := range t.UDT.Fields {
			p = primitive.AppendString(p, f.Name)
			p = AppendType(p, f.Type)
		}
	}
	return p
}
