package mpt

import (
	"testing"

	"github.com/TKONIY/gmpt/internal/random"
	"github.com/TKONIY/gmpt/pkg/crypto/hash"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestNode_Bytes(t *testing.T) {
	t.Run("Leaf", func(t *testing.T) {
		t.Run("EvenKey", func(t *testing.T) {
			l := NewLeafNode([]byte{1, 2, 3, 4}, []byte("v"))
			require.Equal(t, []byte{0xc5, 0x83, 0x20, 0x12, 0x34, 0x76}, l.Bytes())
		})
		t.Run("OddKey", func(t *testing.T) {
			l := NewLeafNode([]byte{1, 2, 3}, []byte("v"))
			require.Equal(t, []byte{0xc4, 0x82, 0x31, 0x23, 0x76}, l.Bytes())
		})
		t.Run("EmptyKey", func(t *testing.T) {
			l := NewLeafNode(nil, []byte("v"))
			require.Equal(t, []byte{0xc2, 0x20, 0x76}, l.Bytes())
		})
	})
	t.Run("Extension", func(t *testing.T) {
		b := NewBranchNode()
		b.Children[1] = NewLeafNode(nil, random.Bytes(40))
		b.Children[2] = NewLeafNode(nil, random.Bytes(40))
		e := NewExtensionNode([]byte{0xa}, b)
		enc := e.Bytes()
		h := b.Hash()
		// list header, compact key 0x1a, then 32-byte reference
		require.Equal(t, append([]byte{0xe2, 0x1a, 0xa0}, h[:]...), enc)
	})
	t.Run("Branch", func(t *testing.T) {
		b := NewBranchNode()
		b.Children[1] = NewLeafNode([]byte{2}, []byte("a"))
		b.SetValue([]byte("x"))
		expected := []byte{0xd3, 0x80, 0xc2, 0x32, 0x61}
		for range 14 {
			expected = append(expected, 0x80)
		}
		expected = append(expected, 0x78)
		require.Equal(t, expected, b.Bytes())
		require.Equal(t, []byte("x"), b.Value())
	})
	t.Run("Hash", func(t *testing.T) {
		h := random.Hash()
		n := NewHashNode(h)
		require.Equal(t, append([]byte{0xa0}, h[:]...), n.Bytes())
		require.Equal(t, h, n.Hash())
		require.Same(t, n, n.Clone())
	})
	t.Run("Empty", func(t *testing.T) {
		require.Equal(t, []byte{0x80}, EmptyNode{}.Bytes())
		require.Panics(t, func() { _ = EmptyNode{}.Hash() })
	})
}

func TestNode_Hash(t *testing.T) {
	require.Equal(t, types.EmptyRootHash, EmptyRootHash)
	require.Equal(t, EmptyRootHash, RootHash(EmptyNode{}))

	l := NewLeafNode([]byte{1}, []byte{2})
	require.True(t, isInline(l))
	require.Equal(t, hash.Keccak256(l.Bytes()), RootHash(l))

	big := NewLeafNode([]byte{1}, random.Bytes(64))
	require.False(t, isInline(big))
}

func TestNode_Clone(t *testing.T) {
	b := NewBranchNode()
	b.Children[3] = NewLeafNode([]byte{1}, []byte{2})
	h := b.Hash()
	require.True(t, b.isCached())

	c := b.Clone().(*BranchNode)
	require.False(t, c.isCached())
	c.Children[4] = NewLeafNode([]byte{1}, []byte{3})
	require.NotEqual(t, h, c.Hash())
	require.Equal(t, h, b.Hash())
	require.Equal(t, 2, c.childCount())
}

func TestNodeType_String(t *testing.T) {
	require.Equal(t, "branch", BranchT.String())
	require.Equal(t, "extension", ExtensionT.String())
	require.Equal(t, "leaf", LeafT.String())
	require.Equal(t, "hash", HashT.String())
	require.Equal(t, "empty", EmptyT.String())
	require.Equal(t, "unknown", NodeType(42).String())
}

func TestNibbles(t *testing.T) {
	t.Run("KeyBytesToHex", func(t *testing.T) {
		require.Equal(t, []byte{0xa, 0xb, 0x0, 0x1, terminator}, KeyBytesToHex([]byte{0xab, 0x01}))
		require.Equal(t, []byte{terminator}, KeyBytesToHex(nil))
		key := random.Bytes(33)
		require.Equal(t, key, HexToKeyBytes(KeyBytesToHex(key)))
		require.Panics(t, func() { HexToKeyBytes([]byte{1, 2, 3}) })
	})
	t.Run("NormalizePath", func(t *testing.T) {
		p, err := NormalizePath([]byte{1, 2, terminator})
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2}, p)

		p, err = NormalizePath([]byte{1, 2})
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2}, p)

		_, err = NormalizePath([]byte{1, terminator, 2})
		require.ErrorIs(t, err, ErrInvalidNibble)
		_, err = NormalizePath([]byte{17})
		require.ErrorIs(t, err, ErrInvalidNibble)
	})
	t.Run("CommonPrefixLen", func(t *testing.T) {
		require.Equal(t, 0, CommonPrefixLen(nil, []byte{1}))
		require.Equal(t, 2, CommonPrefixLen([]byte{1, 2, 3}, []byte{1, 2, 4}))
		require.Equal(t, 2, CommonPrefixLen([]byte{1, 2, 3}, []byte{1, 2}))
		require.Equal(t, 3, CommonPrefixLen([]byte{1, 2, 3}, []byte{1, 2, 3}))
	})
	t.Run("Compact", func(t *testing.T) {
		require.Equal(t, []byte{0x00}, hexToCompact(nil, false))
		require.Equal(t, []byte{0x20}, hexToCompact(nil, true))
		require.Equal(t, []byte{0x11, 0x23}, hexToCompact([]byte{1, 2, 3}, false))
		require.Equal(t, []byte{0x00, 0x12}, hexToCompact([]byte{1, 2}, false))
		require.Equal(t, []byte{0x3f, 0x1c}, hexToCompact([]byte{0xf, 0x1, 0xc}, true))
	})
}
