package sui

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// AddressLength is the byte length of Sui addresses and object ids.
const AddressLength = 32

// Encoder appends BCS encoded values to a buffer.
type Encoder struct {
	buf []byte
}

// Bytes returns the encoded output.
func (e *Encoder) Bytes() []byte { return e.buf }

// U8 writes one byte.
func (e *Encoder) U8(v uint8) { e.buf = append(e.buf, v) }

// U16 writes a little-endian u16.
func (e *Encoder) U16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

// U64 writes a little-endian u64.
func (e *Encoder) U64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// Bool writes 0 or 1.
func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
		return
	}
	e.U8(0)
}

// ULEB128 writes a variable-length length or enum tag.
func (e *Encoder) ULEB128(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// VecBytes writes a length-prefixed byte vector.
func (e *Encoder) VecBytes(b []byte) {
	e.ULEB128(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// String writes a length-prefixed UTF-8 string.
func (e *Encoder) String(s string) { e.VecBytes([]byte(s)) }

// Fixed writes raw bytes with no prefix.
func (e *Encoder) Fixed(b []byte) { e.buf = append(e.buf, b...) }

// Address writes a 32-byte address parsed from hex.
func (e *Encoder) Address(s string) error {
	b, err := ParseAddress(s)
	if err != nil {
		return err
	}
	e.Fixed(b[:])
	return nil
}

// ParseAddress parses a 0x-prefixed hex address of up to 32 bytes, left
// padding short forms such as 0x6.
func ParseAddress(s string) ([AddressLength]byte, error) {
	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hexPart == "" || len(hexPart) > 2*AddressLength || !isHex(hexPart) {
		return [AddressLength]byte{}, fmt.Errorf("sui: invalid address %q", s)
	}
	return common.HexToHash(hexPart), nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// DecodeDigest decodes a base58 object digest.
func DecodeDigest(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("sui: digest %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("sui: digest %q has %d bytes", s, len(b))
	}
	return b, nil
}

// DecodeU64 reads a little-endian u64 return value.
func DecodeU64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("sui: u64 needs 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b[:8]), nil
}

// DecodeString reads a length-prefixed UTF-8 string return value.
func DecodeString(b []byte) (string, error) {
	n, read := uleb128(b)
	if read == 0 || uint64(len(b)-read) < n {
		return "", fmt.Errorf("sui: malformed string of %d bytes", len(b))
	}
	return string(b[read : read+int(n)]), nil
}

func uleb128(b []byte) (uint64, int) {
	var v uint64
	for i := 0; i < len(b) && i < 10; i++ {
		v |= uint64(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// ---------------------------------------------------------------------------
// Type tags
// ---------------------------------------------------------------------------

var primitiveTags = map[string]uint64{
	"bool":    0,
	"u8":      1,
	"u64":     2,
	"u128":    3,
	"address": 4,
	"signer":  5,
	"u16":     8,
	"u32":     9,
	"u256":    10,
}

const (
	tagVector = 6
	tagStruct = 7
)

// TypeTag writes the BCS form of a Move type such as
// "0x2::coin::Coin<0x2::sui::SUI>" or "vector<u8>".
func (e *Encoder) TypeTag(s string) error {
	s = strings.TrimSpace(s)
	if tag, ok := primitiveTags[s]; ok {
		e.ULEB128(tag)
		return nil
	}
	if strings.HasPrefix(s, "vector<") && strings.HasSuffix(s, ">") {
		e.ULEB128(tagVector)
		return e.TypeTag(s[len("vector<") : len(s)-1])
	}

	base, params := s, ""
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return fmt.Errorf("sui: malformed type %q", s)
		}
		base, params = s[:i], s[i+1:len(s)-1]
	}
	parts := strings.Split(base, "::")
	if len(parts) != 3 {
		return fmt.Errorf("sui: malformed struct type %q", s)
	}
	e.ULEB128(tagStruct)
	if err := e.Address(parts[0]); err != nil {
		return err
	}
	e.String(parts[1])
	e.String(parts[2])

	args := splitTypeParams(params)
	e.ULEB128(uint64(len(args)))
	for _, a := range args {
		if err := e.TypeTag(a); err != nil {
			return err
		}
	}
	return nil
}

// splitTypeParams splits on top-level commas.
func splitTypeParams(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		out   []string
		depth int
		start int
	)
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
