package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// LeafNode represents MPT's leaf node: the rest of the key path and the
// value stored under it. Leaf with an empty key in the last slot of a
// branch carries the branch value.
type LeafNode struct {
	BaseNode
	key   []byte
	value []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns leaf node with the specified key (nibbles without the
// terminator) and value. Neither slice is copied.
func NewLeafNode(key, value []byte) *LeafNode {
	return &LeafNode{key: key, value: value}
}

// Type implements Node interface.
func (n *LeafNode) Type() NodeType { return LeafT }

// Key returns the path suffix stored in the leaf.
func (n *LeafNode) Key() []byte { return n.key }

// Value returns the value stored in the leaf.
func (n *LeafNode) Value() []byte { return n.value }

// Hash implements BaseNode interface.
func (n *LeafNode) Hash() common.Hash {
	return n.getHash(n)
}

// Bytes implements BaseNode interface.
func (n *LeafNode) Bytes() []byte {
	return n.getBytes(n)
}

// Clone implements Node interface.
func (n *LeafNode) Clone() Node {
	res := &LeafNode{key: n.key, value: n.value}
	return res
}

func (n *LeafNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	w.WriteBytes(hexToCompact(n.key, true))
	w.WriteBytes(n.value)
	w.ListEnd(offset)
}
