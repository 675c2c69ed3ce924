package mpt

import (
	"github.com/TKONIY/gmpt/pkg/crypto/hash"
	"github.com/ethereum/go-ethereum/common"
)

// BaseNode implements basic things every node needs like caching hash and
// serialized representation. It's a basic node building block intended to be
// included into all node types.
//
// The cache is not synchronized: a node is encoded by exactly one goroutine
// (see Commit) and is only read concurrently afterwards.
type BaseNode struct {
	hash       common.Hash
	bytes      []byte
	hashValid  bool
	bytesValid bool
}

// BaseNodeIface abstracts away basic Node functions.
type BaseNodeIface interface {
	Hash() common.Hash
	Type() NodeType
	Bytes() []byte
	isCached() bool
}

// getHash returns a hash of this BaseNode.
func (b *BaseNode) getHash(n Node) common.Hash {
	if !b.hashValid {
		b.updateHash(n)
	}
	return b.hash
}

// getBytes returns a slice of bytes representing this node.
func (b *BaseNode) getBytes(n Node) []byte {
	if !b.bytesValid {
		b.updateBytes(n)
	}
	return b.bytes
}

// updateHash updates hash field for this BaseNode.
func (b *BaseNode) updateHash(n Node) {
	if n.Type() == HashT {
		panic("can't update hash for hash node")
	}
	b.hash = hash.Keccak256(b.getBytes(n))
	b.hashValid = true
}

// updateBytes updates bytes field for this BaseNode.
func (b *BaseNode) updateBytes(n Node) {
	b.bytes = toBytes(n)
	b.bytesValid = true
}

// invalidateCache sets all cache fields to invalid state.
func (b *BaseNode) invalidateCache() {
	b.bytesValid = false
	b.hashValid = false
}

func (b *BaseNode) isCached() bool {
	return b.bytesValid
}
