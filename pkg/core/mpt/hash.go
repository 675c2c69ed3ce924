package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// HashNode represents MPT's hash node: a committed subtree known only by its
// digest. It can't be descended into, so any insertion reaching it fails with
// ErrUnresolvedHash.
type HashNode struct {
	BaseNode
}

var _ Node = (*HashNode)(nil)

// NewHashNode returns hash node with the specified hash.
func NewHashNode(h common.Hash) *HashNode {
	return &HashNode{
		BaseNode: BaseNode{
			hash:      h,
			hashValid: true,
		},
	}
}

// Type implements Node interface.
func (h *HashNode) Type() NodeType { return HashT }

// Hash implements Node interface.
func (h *HashNode) Hash() common.Hash {
	if !h.hashValid {
		panic("can't get hash of an empty HashNode")
	}
	return h.hash
}

// Bytes returns serialized HashNode, that is an RLP string of the hash.
func (h *HashNode) Bytes() []byte {
	return h.getBytes(h)
}

// Clone implements Node interface. Hash nodes are immutable, so the node
// itself is returned.
func (h *HashNode) Clone() Node {
	return h
}

func (h *HashNode) isCached() bool { return true }

func (h *HashNode) encode(w rlp.EncoderBuffer) {
	w.WriteBytes(h.hash[:])
}
