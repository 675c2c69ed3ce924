package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// EmptyNode represents empty node.
type EmptyNode struct{}

var _ Node = EmptyNode{}

// Hash implements Node interface.
func (e EmptyNode) Hash() common.Hash {
	panic("can't get hash of an EmptyNode")
}

// Type implements Node interface.
func (e EmptyNode) Type() NodeType {
	return EmptyT
}

// Bytes implements Node interface.
func (e EmptyNode) Bytes() []byte {
	return rlp.EmptyString
}

// Clone implements Node interface.
func (e EmptyNode) Clone() Node {
	return e
}

func (e EmptyNode) isCached() bool { return true }

func (e EmptyNode) encode(w rlp.EncoderBuffer) {
	w.Write(rlp.EmptyString)
}
