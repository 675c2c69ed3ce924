package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// NodeType represents node type.
type NodeType byte

// Node types definitions.
const (
	BranchT    NodeType = 0x00
	ExtensionT NodeType = 0x01
	HashT      NodeType = 0x02
	LeafT      NodeType = 0x03
	EmptyT     NodeType = 0x04
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case BranchT:
		return "branch"
	case ExtensionT:
		return "extension"
	case HashT:
		return "hash"
	case LeafT:
		return "leaf"
	case EmptyT:
		return "empty"
	default:
		return "unknown"
	}
}

// Node represents common interface of all MPT nodes.
type Node interface {
	BaseNodeIface
	// Clone returns a shallow copy of the node with an invalidated cache,
	// it's used to update committed tries without touching the original.
	Clone() Node
	// encode writes the canonical RLP encoding of the node into w.
	encode(w rlp.EncoderBuffer)
}

// EmptyRootHash is the root of a trie without any key.
var EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// RootHash returns the digest committing to the trie rooted at n. Unlike
// child references, the root is always hashed, even if its encoding is
// shorter than a hash.
func RootHash(n Node) common.Hash {
	switch n.Type() {
	case EmptyT:
		return EmptyRootHash
	default:
		return n.Hash()
	}
}

// encodeRef writes the reference to n as it is embedded into its parent:
// nodes with encoding shorter than a hash are inlined, others are referenced
// by their hash.
func encodeRef(w rlp.EncoderBuffer, n Node) {
	switch n.Type() {
	case EmptyT:
		w.Write(rlp.EmptyString)
	case HashT:
		h := n.Hash()
		w.WriteBytes(h[:])
	default:
		if enc := n.Bytes(); len(enc) < common.HashLength {
			w.Write(enc)
		} else {
			h := n.Hash()
			w.WriteBytes(h[:])
		}
	}
}

// toBytes is a helper for serializing node.
func toBytes(n Node) []byte {
	w := rlp.NewEncoderBuffer(nil)
	n.encode(w)
	res := w.ToBytes()
	_ = w.Flush()
	return res
}

// isInline tells whether n is embedded into its parent instead of being
// referenced by hash.
func isInline(n Node) bool {
	switch n.Type() {
	case EmptyT, HashT:
		return false
	default:
		return len(n.Bytes()) < common.HashLength
	}
}
