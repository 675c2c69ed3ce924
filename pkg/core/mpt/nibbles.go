package mpt

import "errors"

// terminator marks the end of a key in hex (nibble) form.
const terminator = 16

// ErrInvalidNibble is returned for paths containing values that are not
// nibbles or a terminator that is not the last element.
var ErrInvalidNibble = errors.New("invalid nibble")

// KeyBytesToHex converts raw key bytes to nibbles (high nibble first) with
// the terminator appended.
func KeyBytesToHex(str []byte) []byte {
	l := len(str)*2 + 1
	var nibbles = make([]byte, l)
	for i, b := range str {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	nibbles[l-1] = terminator
	return nibbles
}

// HexToKeyBytes converts nibbles back to raw key bytes. The terminator is
// ignored. It panics on odd number of nibbles.
func HexToKeyBytes(hex []byte) []byte {
	if hasTerm(hex) {
		hex = hex[:len(hex)-1]
	}
	if len(hex)&1 != 0 {
		panic("can't convert hex key of odd length")
	}
	key := make([]byte, len(hex)/2)
	for bi, ni := 0, 0; ni < len(hex); bi, ni = bi+1, ni+2 {
		key[bi] = hex[ni]<<4 | hex[ni+1]
	}
	return key
}

// NormalizePath checks that hex is a valid nibble path and returns it
// without the terminator. The result shares memory with hex.
func NormalizePath(hex []byte) ([]byte, error) {
	for i, n := range hex {
		if n < terminator {
			continue
		}
		if n == terminator && i == len(hex)-1 {
			return hex[:i], nil
		}
		return nil, ErrInvalidNibble
	}
	return hex, nil
}

// CommonPrefixLen returns the length of the longest common prefix of a and b.
func CommonPrefixLen(a, b []byte) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// hexToCompact encodes nibble path using hex-prefix encoding. The first
// nibble of the result carries the leaf flag and path parity.
func hexToCompact(hex []byte, leaf bool) []byte {
	var flag byte
	if leaf {
		flag = 1 << 5
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = flag
	if len(hex)&1 == 1 {
		buf[0] |= 1<<4 | hex[0]
		hex = hex[1:]
	}
	for bi, ni := 1, 0; ni < len(hex); bi, ni = bi+1, ni+2 {
		buf[bi] = hex[ni]<<4 | hex[ni+1]
	}
	return buf
}

func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminator
}

// splitPath splits path for a branch node.
func splitPath(path []byte) (byte, []byte) {
	if len(path) != 0 {
		return path[0], path[1:]
	}
	return lastChild, path
}

// concatPath returns a newly allocated a||b.
func concatPath(a []byte, b ...byte) []byte {
	res := make([]byte, 0, len(a)+len(b))
	res = append(res, a...)
	return append(res, b...)
}

func copySlice(a []byte) []byte {
	if a == nil {
		return nil
	}
	b := make([]byte, len(a))
	copy(b, a)
	return b
}
