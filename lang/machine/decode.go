package machine

import "encoding/binary"

// Mirrors lang/compiler's own little-endian encoding helpers; duplicated
// here (instead of exported from lang/compiler) because decoding is a
// machine concern, not a compiler one. The compiler only ever writes.

func read16(b []byte, at int) uint16 {
	return binary.LittleEndian.Uint16(b[at : at+2])
}

func read64(b []byte, at int) uint64 {
	return binary.LittleEndian.Uint64(b[at : at+8])
}

func readCString(b []byte, at int) (string, int) {
	start := at
	for b[at] != 0 {
		at++
	}
	return string(b[start:at]), at + 1
}
