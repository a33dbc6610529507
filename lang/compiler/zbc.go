package compiler

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// WriteZBC serializes p to the precompiled bytecode file format: five
// back-to-back records, one per event in fixed order, each a u16
// little-endian length followed by that many raw bytecode bytes. No
// header, no checksum, no version field.
func WriteZBC(w io.Writer, p *Program) error {
	bw := bufio.NewWriter(w)
	for _, ev := range p.Events() {
		if len(ev) > 0xFFFF {
			return fmt.Errorf("zbc: event payload of %d bytes overflows the 16-bit length field", len(ev))
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(ev)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := bw.Write(ev); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadZBC parses the precompiled bytecode file format. It refuses any
// input shorter than the five declared payloads.
func ReadZBC(r io.Reader) (*Program, error) {
	br := bufio.NewReader(r)
	var events [5][]byte
	for i := range events {
		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("zbc: reading event %d length: %w", i, err)
		}
		n := binary.LittleEndian.Uint16(lenBuf[:])
		if n == 0 {
			continue // an empty event stays nil, as CompileProgram leaves it
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("zbc: reading event %d payload (%d bytes): %w", i, n, err)
		}
		events[i] = buf
	}
	return FromEvents(events), nil
}
