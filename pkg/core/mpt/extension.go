package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ExtensionNode represents an MPT's extension node.
type ExtensionNode struct {
	BaseNode
	key  []byte
	next Node
}

var _ Node = (*ExtensionNode)(nil)

// NewExtensionNode returns an extension node with the specified key and the
// next node. The key is a non-empty nibble path and next is expected to be a
// branch (or a hash of one).
func NewExtensionNode(key []byte, next Node) *ExtensionNode {
	return &ExtensionNode{
		key:  key,
		next: next,
	}
}

// Type implements Node interface.
func (e *ExtensionNode) Type() NodeType { return ExtensionT }

// Key returns the shared nibble segment.
func (e *ExtensionNode) Key() []byte { return e.key }

// Next returns the child node.
func (e *ExtensionNode) Next() Node { return e.next }

// Hash implements BaseNode interface.
func (e *ExtensionNode) Hash() common.Hash {
	return e.getHash(e)
}

// Bytes implements BaseNode interface.
func (e *ExtensionNode) Bytes() []byte {
	return e.getBytes(e)
}

// Clone implements Node interface.
func (e *ExtensionNode) Clone() Node {
	return &ExtensionNode{key: e.key, next: e.next}
}

func (e *ExtensionNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	w.WriteBytes(hexToCompact(e.key, false))
	encodeRef(w, e.next)
	w.ListEnd(offset)
}
