package hash

import (
	gohash "hash"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// KeccakState is a keccak256 hasher that can be squeezed with Read, which
// avoids the allocation Sum does.
type KeccakState interface {
	gohash.Hash
	Read([]byte) (int, error)
}

var keccakPool = sync.Pool{
	New: func() any { return sha3.NewLegacyKeccak256() },
}

// NewKeccakState returns a reset hasher from the pool. It must be released
// with PutKeccakState once the caller is done with it.
func NewKeccakState() KeccakState {
	h := keccakPool.Get().(KeccakState)
	h.Reset()
	return h
}

// PutKeccakState returns h to the pool.
func PutKeccakState(h KeccakState) {
	keccakPool.Put(h)
}

// Warm puts n fresh hashers into the pool so that the first parallel hashing
// pass doesn't have to allocate them.
func Warm(n int) {
	hs := make([]KeccakState, n)
	for i := range hs {
		hs[i] = NewKeccakState()
	}
	for _, h := range hs {
		PutKeccakState(h)
	}
}

// Keccak256 computes legacy (pre-NIST) keccak256 over the concatenation of
// data.
func Keccak256(data ...[]byte) common.Hash {
	var res common.Hash
	h := NewKeccakState()
	for _, b := range data {
		h.Write(b)
	}
	_, _ = h.Read(res[:])
	PutKeccakState(h)
	return res
}

// Keccak256Bytes is Keccak256 returning a freshly allocated slice.
func Keccak256Bytes(data ...[]byte) []byte {
	res := Keccak256(data...)
	return res[:]
}
