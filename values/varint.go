package values

import (
	"math/big"
)

// appendBigInt writes v as minimal big-endian two's complement: the shortest
// byte string whose top bit still carries the sign.
func appendBigInt(p []byte, v *big.Int) []byte {
	switch v.Sign() {
	case 0:
		return append(p, 0)
	case 1:
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			p = append(p, 0)
		}
		return append(p, b...)
	default:
		// For -v with magnitude m, two's complement of the minimal width is
		// m-1 inverted, sign-extended with 0xFF as needed.
		m := new(big.Int).Neg(v)
		m.Sub(m, big.NewInt(1))
		b := m.Bytes()
		if len(b) == 0 {
			b = []byte{0}
		}
		for i := range b {
			b[i] = ^b[i]
		}
		if b[0]&0x80 == 0 {
			p = append(p, 0xFF)
		}
		return append(p, b...)
	}
}

// bigIntFromBytes reads big-endian two's complement. Empty input is zero.
func bigIntFromBytes(data []byte) *big.Int {
	v := new(big.Int)
	if len(data) == 0 {
		return v
	}
	if data[0]&0x80 == 0 {
		return v.SetBytes(data)
	}
	m := make([]byte, len(data))
	for i, b := range data {
		m[i] = ^b
	}
	v.SetBytes(m)
	v.Add(v, big.NewInt(1))
	return v.Neg(v)
}
