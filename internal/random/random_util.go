package random

import (
	"math/rand/v2"

	"github.com/ethereum/go-ethereum/common"
)

// Bytes returns a random byte slice of specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Fill fills buffer with random bytes.
func Fill(buf []byte) {
	for i := range buf {
		buf[i] = byte(rand.Uint32())
	}
}

// Int returns a random integer in [minI,maxI).
func Int(minI, maxI int) int {
	return minI + rand.IntN(maxI-minI)
}

// Hash returns a random hash.
func Hash() common.Hash {
	var h common.Hash
	Fill(h[:])
	return h
}

// Address returns a random address.
func Address() common.Address {
	var a common.Address
	Fill(a[:])
	return a
}

// Keys returns n distinct random raw keys of the specified length.
func Keys(n, keyLen int) [][]byte {
	seen := make(map[string]struct{}, n)
	res := make([][]byte, 0, n)
	for len(res) < n {
		k := Bytes(keyLen)
		if _, ok := seen[string(k)]; ok {
			continue
		}
		seen[string(k)] = struct{}{}
		res = append(res, k)
	}
	return res
}

// Shuffle returns a shuffled copy of s.
func Shuffle[T any](s []T) []T {
	res := make([]T, len(s))
	copy(res, s)
	rand.Shuffle(len(res), func(i, j int) {
		res[i], res[j] = res[j], res[i]
	})
	return res
}
