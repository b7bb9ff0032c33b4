package values

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"github.com/codewiresh/cqlwire/primitive"
)

func roundTrip(t *testing.T, ct ColumnType, v any) {
	t.Helper()
	p, err := Marshal(ct, v)
	if err != nil {
		t.Fatalf("Marshal(%s, %v): %v", ct, v, err)
	}
	got, err := Unmarshal(ct, p)
	if err != nil {
		t.Fatalf("Unmarshal(%s, % X): %v", ct, p, err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("%s round trip: got %#v, want %#v", ct, got, v)
	}
	// Re-encoding the decoded carrier must reproduce the payload bit for bit.
	again, err := Marshal(ct, got)
	if err != nil {
		t.Fatalf("re-Marshal(%s): %v", ct, err)
	}
	if !bytes.Equal(again, p) {
		t.Fatalf("%s re-encode: got % X, want % X", ct, again, p)
	}
}

func TestScalarRoundTrips(t *testing.T) {
	roundTrip(t, Primitive(TypeAscii), "hello")
	roundTrip(t, Primitive(TypeVarchar), "héllo wörld")
	roundTrip(t, Primitive(TypeVarchar), "")
	roundTrip(t, Primitive(TypeBlob), []byte{0x00, 0xFF, 0x80})
	roundTrip(t, Primitive(TypeBlob), []byte{})
	roundTrip(t, Primitive(TypeBoolean), true)
	roundTrip(t, Primitive(TypeBoolean), false)
	for _, v := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64} {
		roundTrip(t, Primitive(TypeBigint), v)
		roundTrip(t, Primitive(TypeCounter), v)
	}
	for _, v := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32} {
		roundTrip(t, Primitive(TypeInt), v)
	}
	for _, v := range []int16{0, -1, math.MaxInt16, math.MinInt16} {
		roundTrip(t, Primitive(TypeSmallint), v)
	}
	for _, v := range []int8{0, -1, math.MaxInt8, math.MinInt8} {
		roundTrip(t, Primitive(TypeTinyint), v)
	}
	for _, v := range []float64{0, 1.5, -math.Pi, math.Inf(1), math.SmallestNonzeroFloat64} {
		roundTrip(t, Primitive(TypeDouble), v)
	}
	for _, v := range []float32{0, 1.5, -math.MaxFloat32} {
		roundTrip(t, Primitive(TypeFloat), v)
	}
}

func TestScalarFixedWidth(t *testing.T) {
	for _, tc := range []struct {
		ct   ColumnType
		data []byte
	}{
		{Primitive(TypeBigint), make([]byte, 7)},
		{Primitive(TypeInt), make([]byte, 5)},
		{Primitive(TypeSmallint), make([]byte, 1)},
		{Primitive(TypeTinyint), make([]byte, 2)},
		{Primitive(TypeBoolean), make([]byte, 0)},
		{Primitive(TypeUUID), make([]byte, 15)},
		{Primitive(TypeTimestamp), make([]byte, 9)},
	} {
		if _, err := Unmarshal(tc.ct, tc.data); !errors.Is(err, primitive.ErrMalformed) {
			t.Errorf("Unmarshal(%s, %d bytes): err = %v, want ErrMalformed", tc.ct, len(tc.data), err)
		}
	}
}

func TestIntWidening(t *testing.T) {
	p, err := Marshal(Primitive(TypeInt), 42)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := []byte{0, 0, 0, 42}; !bytes.Equal(p, want) {
		t.Fatalf("got % X, want % X", p, want)
	}
	if _, err := Marshal(Primitive(TypeInt), math.MaxInt32+1); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("overflow err = %v, want ErrConstraint", err)
	}
	if _, err := Marshal(Primitive(TypeTinyint), 200); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("tinyint overflow err = %v, want ErrConstraint", err)
	}
	if _, err := Marshal(Primitive(TypeInt), "nope"); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("bad carrier err = %v, want ErrConstraint", err)
	}
}

func TestVarintTwosComplement(t *testing.T) {
	for _, tc := range []struct {
		v    int64
		wire []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x00, 0x80}},
		{256, []byte{0x01, 0x00}},
		{-1, []byte{0xFF}},
		{-128, []byte{0x80}},
		{-129, []byte{0xFF, 0x7F}},
		{-256, []byte{0xFF, 0x00}},
		{32767, []byte{0x7F, 0xFF}},
		{-32768, []byte{0x80, 0x00}},
	} {
		p, err := Marshal(Primitive(TypeVarint), big.NewInt(tc.v))
		if err != nil {
			t.Fatalf("Marshal(varint, %d): %v", tc.v, err)
		}
		if !bytes.Equal(p, tc.wire) {
			t.Errorf("varint %d: got % X, want % X", tc.v, p, tc.wire)
		}
		got, err := Unmarshal(Primitive(TypeVarint), tc.wire)
		if err != nil {
			t.Fatalf("Unmarshal(varint, % X): %v", tc.wire, err)
		}
		if got.(*big.Int).Int64() != tc.v {
			t.Errorf("varint % X: got %s, want %d", tc.wire, got, tc.v)
		}
	}

	huge, _ := new(big.Int).SetString("-123456789012345678901234567890123456789", 10)
	roundTrip(t, Primitive(TypeVarint), huge)
}

func TestDecimal(t *testing.T) {
	d := inf.NewDec(123456, 3) // 123.456
	p, err := Marshal(Primitive(TypeDecimal), d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := []byte{0x00, 0x00, 0x00, 0x03, 0x01, 0xE2, 0x40}; !bytes.Equal(p, want) {
		t.Fatalf("got % X, want % X", p, want)
	}
	got, err := Unmarshal(Primitive(TypeDecimal), p)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.(*inf.Dec).Cmp(d) != 0 {
		t.Fatalf("got %s, want %s", got, d)
	}

	neg := inf.NewDec(-5, 10)
	roundTripDec(t, neg)
	roundTripDec(t, inf.NewDec(0, 0))
}

func roundTripDec(t *testing.T, d *inf.Dec) {
	t.Helper()
	p, err := Marshal(Primitive(TypeDecimal), d)
	if err != nil {
		t.Fatalf("Marshal(%s): %v", d, err)
	}
	got, err := Unmarshal(Primitive(TypeDecimal), p)
	if err != nil {
		t.Fatalf("Unmarshal(%s): %v", d, err)
	}
	g := got.(*inf.Dec)
	if g.Scale() != d.Scale() || g.UnscaledBig().Cmp(d.UnscaledBig()) != 0 {
		t.Fatalf("got %s (scale %d), want %s (scale %d)", g, g.Scale(), d, d.Scale())
	}
}

func TestTimestamp(t *testing.T) {
	when := time.Date(2024, 3, 15, 12, 34, 56, 789_000_000, time.UTC)
	roundTrip(t, Primitive(TypeTimestamp), when)

	p, _ := Marshal(Primitive(TypeTimestamp), int64(-1))
	got, err := Unmarshal(Primitive(TypeTimestamp), p)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.(time.Time).Equal(time.UnixMilli(-1)) {
		t.Fatalf("got %v", got)
	}
}

func TestDate(t *testing.T) {
	if d := DateOf(time.Unix(0, 0).UTC()); d != 1<<31 {
		t.Fatalf("epoch date = %d, want %d", d, uint64(1)<<31)
	}
	if d := DateOf(time.Unix(-1, 0).UTC()); d != 1<<31-1 {
		t.Fatalf("day before epoch = %d, want %d", d, uint64(1)<<31-1)
	}
	roundTrip(t, Primitive(TypeDate), Date(1<<31))
	roundTrip(t, Primitive(TypeDate), Date(0))
	roundTrip(t, Primitive(TypeDate), Date(math.MaxUint32))

	if s := Date(1 << 31).String(); s != "1970-01-01" {
		t.Fatalf("epoch String = %q", s)
	}
}

func TestTime(t *testing.T) {
	roundTrip(t, Primitive(TypeTime), time.Duration(0))
	roundTrip(t, Primitive(TypeTime), 24*time.Hour-time.Nanosecond)
	if _, err := Marshal(Primitive(TypeTime), 24*time.Hour); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("24h err = %v, want ErrConstraint", err)
	}
	if _, err := Marshal(Primitive(TypeTime), -time.Nanosecond); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("negative err = %v, want ErrConstraint", err)
	}
	neg, _ := Marshal(Primitive(TypeBigint), int64(-1))
	if _, err := Unmarshal(Primitive(TypeTime), neg); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("decode negative err = %v, want ErrMalformed", err)
	}
}

func TestDuration(t *testing.T) {
	for _, d := range []Duration{
		{},
		{Months: 1, Days: 2, Nanoseconds: 3},
		{Months: -1, Days: -2, Nanoseconds: -3},
		{Nanoseconds: math.MaxInt64},
		{Nanoseconds: math.MinInt64},
		{Months: math.MaxInt32, Days: math.MaxInt32, Nanoseconds: math.MaxInt64},
		{Months: math.MinInt32},
	} {
		roundTrip(t, Primitive(TypeDuration), d)
	}

	if _, err := Marshal(Primitive(TypeDuration), Duration{Months: 1, Days: -1}); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("mixed sign err = %v, want ErrConstraint", err)
	}

	// 1 month, -1 day, 0 ns on the wire: rejected on decode too.
	mixed := appendVint(appendVint(appendVint(nil, 1), -1), 0)
	if _, err := Unmarshal(Primitive(TypeDuration), mixed); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("mixed sign decode err = %v, want ErrMalformed", err)
	}

	truncated := appendVint(appendVint(nil, 1), 1)
	if _, err := Unmarshal(Primitive(TypeDuration), truncated); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("truncated err = %v, want ErrMalformed", err)
	}
}

func TestVintWire(t *testing.T) {
	for _, tc := range []struct {
		v    int64
		wire []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x02}},
		{-1, []byte{0x01}},
		{63, []byte{0x7E}},
		{-64, []byte{0x7F}},
		{64, []byte{0x80, 0x80}},
		{-65, []byte{0x80, 0x81}},
	} {
		got := appendVint(nil, tc.v)
		if !bytes.Equal(got, tc.wire) {
			t.Errorf("vint %d: got % X, want % X", tc.v, got, tc.wire)
		}
		r := primitive.NewReader(tc.wire)
		if back := readVint(r); back != tc.v || r.Err() != nil {
			t.Errorf("readVint(% X) = %d, %v; want %d", tc.wire, back, r.Err(), tc.v)
		}
	}

	for _, v := range []int64{1 << 13, 1 << 20, 1 << 41, math.MaxInt64, math.MinInt64, -(1 << 55)} {
		wire := appendVint(nil, v)
		r := primitive.NewReader(wire)
		if back := readVint(r); back != v || r.Remaining() != 0 {
			t.Errorf("vint %d: got %d back from % X (remaining %d)", v, back, wire, r.Remaining())
		}
	}
}

func TestUUID(t *testing.T) {
	id := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	roundTrip(t, Primitive(TypeUUID), id)
	roundTrip(t, Primitive(TypeTimeUUID), id)

	p, err := Marshal(Primitive(TypeUUID), "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	if err != nil {
		t.Fatalf("Marshal(string): %v", err)
	}
	if !bytes.Equal(p, id[:]) {
		t.Fatalf("got % X", p)
	}
	if _, err := Marshal(Primitive(TypeUUID), "not-a-uuid"); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("bad uuid err = %v, want ErrConstraint", err)
	}
}

func TestInet(t *testing.T) {
	v4 := net.IP{192, 168, 1, 10}
	p, err := Marshal(Primitive(TypeInet), v4)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := []byte{4, 192, 168, 1, 10}; !bytes.Equal(p, want) {
		t.Fatalf("got % X, want % X", p, want)
	}
	roundTrip(t, Primitive(TypeInet), v4)
	roundTrip(t, Primitive(TypeInet), net.ParseIP("2001:db8::1"))

	// A 4-byte-mapped address in 16-byte form still encodes as 4 bytes.
	p, err = Marshal(Primitive(TypeInet), net.ParseIP("10.0.0.1"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if p[0] != 4 {
		t.Fatalf("mapped v4 encoded as %d bytes", p[0])
	}

	if _, err := Unmarshal(Primitive(TypeInet), []byte{7, 1, 2, 3, 4, 5, 6, 7}); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("size 7 err = %v, want ErrMalformed", err)
	}
	if _, err := Unmarshal(Primitive(TypeInet), []byte{4, 1, 2}); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("short body err = %v, want ErrMalformed", err)
	}
}

func TestCollections(t *testing.T) {
	listInt := List(Primitive(TypeInt))
	roundTrip(t, listInt, []any{int32(1), int32(-2), int32(3)})
	roundTrip(t, listInt, []any{})
	roundTrip(t, listInt, []any{int32(7), nil, int32(9)})

	roundTrip(t, Set(Primitive(TypeVarchar)), []any{"a", "", "c"})

	m := Map(Primitive(TypeVarchar), Primitive(TypeBigint))
	roundTrip(t, m, []MapEntry{
		{Key: "zebra", Value: int64(1)},
		{Key: "aardvark", Value: int64(2)},
		{Key: "mole", Value: nil},
	})

	nested := Map(Primitive(TypeInt), List(Primitive(TypeVarchar)))
	roundTrip(t, nested, []MapEntry{
		{Key: int32(1), Value: []any{"x", "y"}},
		{Key: int32(2), Value: []any{}},
	})
}

func TestCollectionMalformed(t *testing.T) {
	listInt := List(Primitive(TypeInt))

	// Count says two elements but only one is present.
	p := primitive.AppendInt(nil, 2)
	p = primitive.AppendInt(p, 4)
	p = primitive.AppendInt(p, 42)
	if _, err := Unmarshal(listInt, p); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("short list err = %v, want ErrMalformed", err)
	}

	// Trailing garbage after the declared elements.
	p, _ = Marshal(listInt, []any{int32(1)})
	p = append(p, 0xAB)
	if _, err := Unmarshal(listInt, p); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("trailing bytes err = %v, want ErrMalformed", err)
	}

	// The not-set marker is a bind-time artifact, never valid inside values.
	p = primitive.AppendInt(nil, 1)
	p = primitive.AppendInt(p, -2)
	if _, err := Unmarshal(listInt, p); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("not-set element err = %v, want ErrMalformed", err)
	}
}

func TestTuple(t *testing.T) {
	tt := Tuple(Primitive(TypeInt), Primitive(TypeVarchar), Primitive(TypeBoolean))
	roundTrip(t, tt, []any{int32(5), "five", true})
	roundTrip(t, tt, []any{nil, "x", nil})

	if _, err := Marshal(tt, []any{int32(1)}); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("arity err = %v, want ErrConstraint", err)
	}

	p, _ := Marshal(tt, []any{int32(5), "five", true})
	if _, err := Unmarshal(tt, p[:len(p)-4]); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("truncated tuple err = %v, want ErrMalformed", err)
	}
	if _, err := Unmarshal(tt, append(p, 0)); !errors.Is(err, primitive.ErrMalformed) {
		t.Fatalf("trailing tuple bytes err = %v, want ErrMalformed", err)
	}
}

func TestUDT(t *testing.T) {
	addr := ColumnType{Kind: TypeUDT, UDT: &UDTType{
		Keyspace: "geo",
		Name:     "address",
		Fields: []UDTField{
			{Name: "street", Type: Primitive(TypeVarchar)},
			{Name: "zip", Type: Primitive(TypeInt)},
			{Name: "country", Type: Primitive(TypeVarchar)},
		},
	}}
	roundTrip(t, addr, []any{"1 Main St", int32(12345), "NL"})

	// Values written before the last ALTER TYPE ADD simply stop early; the
	// absent trailing fields decode as Null.
	short, err := Marshal(Tuple(Primitive(TypeVarchar), Primitive(TypeInt)), []any{"1 Main St", int32(12345)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(addr, short)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []any{"1 Main St", int32(12345), nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("udt mismatch (-want +got):\n%s", diff)
	}

	if _, err := Marshal(addr, []any{"a", int32(1), "b", "extra"}); !errors.Is(err, primitive.ErrConstraint) {
		t.Fatalf("extra fields err = %v, want ErrConstraint", err)
	}
}

func TestTypeNotation(t *testing.T) {
	types := []ColumnType{
		Primitive(TypeInt),
		Primitive(TypeDuration),
		{Kind: TypeCustom, Custom: "org.example.Thing"},
		List(Primitive(TypeVarchar)),
		Set(Primitive(TypeUUID)),
		Map(Primitive(TypeVarchar), List(Primitive(TypeInt))),
		Tuple(Primitive(TypeInt), Map(Primitive(TypeVarchar), Primitive(TypeBlob))),
		{Kind: TypeUDT, UDT: &UDTType{
			Keyspace: "ks",
			Name:     "thing",
			Fields: []UDTField{
				{Name: "a", Type: Primitive(TypeBigint)},
				{Name: "b", Type: List(Primitive(TypeInet))},
			},
		}},
	}
	for _, ct := range types {
		wire := AppendType(nil, ct)
		r := primitive.NewReader(wire)
		got := ReadType(r)
		if err := r.Err(); err != nil {
			t.Fatalf("ReadType(%s): %v", ct, err)
		}
		if r.Remaining() != 0 {
			t.Fatalf("ReadType(%s): %d bytes left over", ct, r.Remaining())
		}
		if diff := cmp.Diff(ct, got); diff != "" {
			t.Fatalf("type notation %s (-want +got):\n%s", ct, diff)
		}
	}
}

func TestMarshalValue(t *testing.T) {
	v, err := MarshalValue(Primitive(TypeInt), nil)
	if err != nil || !v.IsNull() {
		t.Fatalf("nil: %v, %v", v, err)
	}
	v, err = MarshalValue(Primitive(TypeInt), primitive.NotSetValue())
	if err != nil || !v.IsNotSet() {
		t.Fatalf("not-set: %v, %v", v, err)
	}
	v, err = MarshalValue(Primitive(TypeInt), int32(42))
	if err != nil {
		t.Fatalf("MarshalValue: %v", err)
	}
	if want := []byte{0, 0, 0, 42}; !bytes.Equal(v.Data, want) {
		t.Fatalf("got % X, want % X", v.Data, want)
	}
}
