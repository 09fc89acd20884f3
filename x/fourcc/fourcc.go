// Package fourcc packs, parses and prints the four-character codes that
// identify descriptor types, record keys, enumerators and commands.
package fourcc

import (
	"fmt"
	"strconv"
	"strings"
)

// Make packs a four-byte string into its big-endian code. It panics on any
// other length, so it is meant for constants.
func Make(s string) uint32 {
	if len(s) != 4 {
		panic(fmt.Sprintf("fourcc: %q is not four bytes", s))
	}
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}

// Parse accepts the literal spellings of a code: a quoted four-byte string
// ('abcd'), a hex number (0x61626364), or a bare four-byte string.
func Parse(s string) (uint32, bool) {
	if code, ok := ParseLiteral(s); ok {
		return code, true
	}
	if len(s) == 4 {
		return Make(s), true
	}
	return 0, false
}

// ParseLiteral accepts only the unambiguous spellings: 'abcd' and 0xHHHHHHHH.
func ParseLiteral(s string) (uint32, bool) {
	switch {
	case len(s) == 6 && s[0] == '\'' && s[5] == '\'':
		return Make(s[1:5]), true
	case len(s) == 10 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, false
		}
		return uint32(v), true
	default:
		return 0, false
	}
}

// String returns the four characters of code when they are all printable
// ASCII, and the hex spelling otherwise.
func String(code uint32) string {
	b := []byte{byte(code >> 24), byte(code >> 16), byte(code >> 8), byte(code)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return Hex(code)
		}
	}
	return string(b)
}

// Hex returns the 0xHHHHHHHH spelling of code.
func Hex(code uint32) string {
	return fmt.Sprintf("0x%08X", code)
}

// Quote returns the 'abcd' spelling of code, falling back to hex.
func Quote(code uint32) string {
	s := String(code)
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "'" + s + "'"
}
