package compiler

import (
	"encoding/binary"

	"github.com/mna/zed/lang/ast"
)

// All embedded 16/64-bit operands are little-endian, pinned rather than
// host-endian so .zbc files are portable across machines of the same
// producer/consumer pair; see DESIGN.md for the byte-order decision.

func put16(buf []byte, off ast.Offset) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(off))
	return append(buf, b[:]...)
}

func put64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putCString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}

func patch16(buf []byte, at int, v uint16) {
	binary.LittleEndian.PutUint16(buf[at:at+2], v)
}

func read16(buf []byte, at int) uint16 {
	return binary.LittleEndian.Uint16(buf[at : at+2])
}
