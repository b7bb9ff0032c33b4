package segment

import "hash/crc32"

// CRC24 parameters fixed by the protocol: a Koopman-style polynomial with a
// non-zero initial value so that leading zero bytes perturb the checksum.
const (
	crc24Init = 0x875060
	crc24Poly = 0x1974F0B
)

// CRC24 computes the 24-bit cyclic redundancy check protecting chunk
// headers.
func CRC24(p []byte) uint32 {
	crc := uint32(crc24Init)
	for _, b := range p {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= crc24Poly
			}
		}
	}
	return crc & 0xFFFFFF
}

// The payload CRC32 is seeded by hashing four fixed bytes so that an empty
// payload still has a non-trivial checksum.
var crc32Seed = crc32.ChecksumIEEE([]byte{0xFA, 0x2D, 0x55, 0xCA})

// CRC32 computes the payload cyclic redundancy check.
func CRC32(p []byte) uint32 {
	return crc32.Update(crc32Seed, crc32.IEEETable, p)
}

// crc32Over continues a running CRC32 across a further byte range, so the
// header and payload can be checksummed without concatenating them.
func crc32Over(sum uint32, p []byte) uint32 {
	return crc32.Update(sum, crc32.IEEETable, p)
}
