// Package normalize converts loosely typed values decoded from chain RPC
// responses into trusted numeric and string values. Every function here is
// total: malformed input yields the caller's default, never a panic, NaN or
// infinity.
package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// maxDepth bounds unwrapping of nested containers.
const maxDepth = 8

// ToIntSafe converts v to an int64.
//
//   - nil returns def
//   - strings are parsed as a base-10 integer prefix ("42abc" is 42)
//   - numbers are truncated toward zero when finite and in range
//   - a slice yields its first element
//   - a map yields its "value" entry, else its "fields"."value" entry
//
// Anything else returns def.
func ToIntSafe(v any, def int64) int64 {
	return toInt(v, def, 0)
}

// ToUintSafe is ToIntSafe restricted to non-negative results; negative or
// unparseable values return def.
func ToUintSafe(v any, def uint64) uint64 {
	if s, ok := v.(string); ok {
		if n, ok := parseUintPrefix(s); ok {
			return n
		}
		return def
	}
	n := toInt(v, -1, 0)
	if n < 0 {
		if u, ok := unwrapUintString(v, 0); ok {
			return u
		}
		return def
	}
	return uint64(n)
}

func toInt(v any, def int64, depth int) int64 {
	if depth > maxDepth {
		return def
	}
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if n, ok := parseIntPrefix(x); ok {
			return n
		}
		return def
	case json.Number:
		return toInt(string(x), def, depth+1)
	case float64:
		return floatToInt(x, def)
	case float32:
		return floatToInt(float64(x), def)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uintToInt(uint64(x), def)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintToInt(x, def)
	case bool:
		return def
	case []any:
		if len(x) == 0 {
			return def
		}
		return toInt(x[0], def, depth+1)
	case []string:
		if len(x) == 0 {
			return def
		}
		return toInt(x[0], def, depth+1)
	case map[string]any:
		if inner, ok := x["value"]; ok {
			return toInt(inner, def, depth+1)
		}
		if fields, ok := x["fields"].(map[string]any); ok {
			if inner, ok := fields["value"]; ok {
				return toInt(inner, def, depth+1)
			}
		}
		return def
	default:
		return def
	}
}

// unwrapUintString handles u64 strings above math.MaxInt64 nested inside
// containers.
func unwrapUintString(v any, depth int) (uint64, bool) {
	if depth > maxDepth {
		return 0, false
	}
	switch x := v.(type) {
	case string:
		return parseUintPrefix(x)
	case uint64:
		return x, true
	case []any:
		if len(x) > 0 {
			return unwrapUintString(x[0], depth+1)
		}
	case map[string]any:
		if inner, ok := x["value"]; ok {
			return unwrapUintString(inner, depth+1)
		}
		if fields, ok := x["fields"].(map[string]any); ok {
			if inner, ok := fields["value"]; ok {
				return unwrapUintString(inner, depth+1)
			}
		}
	}
	return 0, false
}

func floatToInt(f float64, def int64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return def
	}
	return int64(t)
}

func uintToInt(u uint64, def int64) int64 {
	if u > math.MaxInt64 {
		return def
	}
	return int64(u)
}

// parseIntPrefix parses an optionally signed run of decimal digits after
// leading whitespace, ignoring anything that follows.
func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	u, ok := digitsPrefix(s)
	if !ok {
		return 0, false
	}
	if neg {
		if u > 1<<63 {
			return 0, false
		}
		return -int64(u), true
	}
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func parseUintPrefix(s string) (uint64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	if s != "" && s[0] == '+' {
		s = s[1:]
	}
	return digitsPrefix(s)
}

func digitsPrefix(s string) (uint64, bool) {
	var n uint64
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := uint64(s[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, i > 0
}

// ToStringSafe returns v when it is a non-empty string, the "value" of a
// wrapping map, or def.
func ToStringSafe(v any, def string) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return def
		}
		return x
	case map[string]any:
		if s, ok := x["value"].(string); ok && s != "" {
			return s
		}
	}
	return def
}

// BytesToHexAddress renders a byte sequence as a 0x-prefixed lower-case hex
// string. Strings are assumed to be formatted already and returned as is.
// Empty input, or any element that is not a byte value, yields "".
func BytesToHexAddress(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		if len(x) == 0 {
			return ""
		}
		return hexutil.Encode(x)
	case []int:
		b := make([]byte, len(x))
		for i, n := range x {
			if n < 0 || n > 255 {
				return ""
			}
			b[i] = byte(n)
		}
		return BytesToHexAddress(b)
	case []any:
		b := make([]byte, len(x))
		for i, e := range x {
			n, ok := byteValue(e)
			if !ok {
				return ""
			}
			b[i] = n
		}
		return BytesToHexAddress(b)
	default:
		return ""
	}
}

func byteValue(v any) (byte, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x < 0 || x > 255 {
			return 0, false
		}
		return byte(x), true
	case int:
		if x < 0 || x > 255 {
			return 0, false
		}
		return byte(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		return byte(n), true
	default:
		return 0, false
	}
}
