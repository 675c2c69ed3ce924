// Package mpttest contains helpers for testing trie builders against
// go-ethereum's StackTrie.
package mpttest

import (
	"bytes"
	"slices"

	"github.com/TKONIY/gmpt/internal/random"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/trie"
)

// Pair is a raw key/value pair.
type Pair struct {
	Key   []byte
	Value []byte
}

// Pairs returns n pairs with distinct random keys of the specified length
// and non-empty random values of up to maxValue bytes.
func Pairs(n, keyLen, maxValue int) []Pair {
	keys := random.Keys(n, keyLen)
	res := make([]Pair, n)
	for i := range keys {
		res[i] = Pair{Key: keys[i], Value: random.Bytes(random.Int(1, maxValue+1))}
	}
	return res
}

// SortedPairs returns the copy of ps sorted by key.
func SortedPairs(ps []Pair) []Pair {
	res := slices.Clone(ps)
	slices.SortFunc(res, func(a, b Pair) int {
		return bytes.Compare(a.Key, b.Key)
	})
	return res
}

// StackRoot returns the root computed by go-ethereum's StackTrie over ps.
// Keys must have the same length, pairs with empty values are skipped.
func StackRoot(ps []Pair) common.Hash {
	st := trie.NewStackTrie(nil)
	for _, p := range SortedPairs(ps) {
		if len(p.Value) == 0 {
			continue
		}
		if err := st.Update(p.Key, p.Value); err != nil {
			panic(err)
		}
	}
	return st.Hash()
}
