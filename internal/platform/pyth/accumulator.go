package pyth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var accumulatorMagic = []byte("PNAU")

// ErrNotAccumulator is returned for payloads without the accumulator magic.
var ErrNotAccumulator = errors.New("pyth: not an accumulator update")

// IsAccumulator reports whether update starts with the accumulator magic.
func IsAccumulator(update []byte) bool {
	return bytes.HasPrefix(update, accumulatorMagic)
}

// ExtractVAA returns the Wormhole VAA embedded in an accumulator update.
//
// Layout: magic(4) major(1) minor(1) trailing_len(1) trailing(trailing_len)
// proof_type(1) vaa_len(2, big endian) vaa(vaa_len) ...
func ExtractVAA(update []byte) ([]byte, error) {
	if !IsAccumulator(update) {
		return nil, ErrNotAccumulator
	}
	off := len(accumulatorMagic) + 2
	if len(update) < off+1 {
		return nil, fmt.Errorf("pyth: accumulator truncated in header")
	}
	trailing := int(update[off])
	off += 1 + trailing

	off++ // proof type
	if len(update) < off+2 {
		return nil, fmt.Errorf("pyth: accumulator truncated before vaa size")
	}
	size := int(binary.BigEndian.Uint16(update[off : off+2]))
	off += 2
	if len(update) < off+size {
		return nil, fmt.Errorf("pyth: vaa needs %d bytes, %d left", size, len(update)-off)
	}
	return update[off : off+size], nil
}
