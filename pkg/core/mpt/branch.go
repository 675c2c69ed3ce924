package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	// childrenCount represents the number of children of a branch node.
	childrenCount = 17
	// lastChild is the index of the last child, it holds the branch value.
	lastChild = childrenCount - 1
)

// BranchNode represents an MPT's branch node.
type BranchNode struct {
	BaseNode
	Children [childrenCount]Node
}

var _ Node = (*BranchNode)(nil)

// NewBranchNode returns a new branch node.
func NewBranchNode() *BranchNode {
	b := new(BranchNode)
	for i := range childrenCount {
		b.Children[i] = EmptyNode{}
	}
	return b
}

// Type implements Node interface.
func (b *BranchNode) Type() NodeType { return BranchT }

// Value returns the value of a key terminating at this branch, nil if there
// is none.
func (b *BranchNode) Value() []byte {
	if l, ok := b.Children[lastChild].(*LeafNode); ok {
		return l.value
	}
	return nil
}

// SetValue sets the value of a key terminating at this branch.
func (b *BranchNode) SetValue(value []byte) {
	b.Children[lastChild] = NewLeafNode(nil, value)
	b.invalidateCache()
}

// Hash implements BaseNode interface.
func (b *BranchNode) Hash() common.Hash {
	return b.getHash(b)
}

// Bytes implements BaseNode interface.
func (b *BranchNode) Bytes() []byte {
	return b.getBytes(b)
}

// Clone implements Node interface.
func (b *BranchNode) Clone() Node {
	res := &BranchNode{Children: b.Children}
	return res
}

// childCount returns the number of non-empty children not counting the value.
func (b *BranchNode) childCount() int {
	var n int
	for i := range lastChild {
		if b.Children[i].Type() != EmptyT {
			n++
		}
	}
	return n
}

func (b *BranchNode) encode(w rlp.EncoderBuffer) {
	offset := w.List()
	for i := range lastChild {
		encodeRef(w, b.Children[i])
	}
	if v := b.Value(); v != nil {
		w.WriteBytes(v)
	} else {
		w.Write(rlp.EmptyString)
	}
	w.ListEnd(offset)
}
