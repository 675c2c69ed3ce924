package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrDuplicateKey is returned when the same key is inserted twice into a
	// trie that doesn't allow overwrites.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrUnresolvedHash is returned when a modification needs to descend into
	// a subtree that is only known by its hash.
	ErrUnresolvedHash = errors.New("unresolved hash node on the path")
	// ErrNotFound is returned when requested trie item is missing.
	ErrNotFound = errors.New("item not found")
)

// KeyValue is a single trie entry. Path is a nibble path without the
// terminator.
type KeyValue struct {
	Path  []byte
	Value []byte
}

// Trie is a sequential in-memory MPT. Modifications never change nodes
// reachable from a previously returned root, so a committed root can be
// kept while the trie is updated further.
type Trie struct {
	root Node
}

// NewTrie returns new MPT trie with the specified root, nil means empty trie.
func NewTrie(root Node) *Trie {
	if root == nil {
		root = EmptyNode{}
	}
	return &Trie{root: root}
}

// Root returns current root node of t.
func (t *Trie) Root() Node {
	return t.root
}

// Get returns value for the provided raw key in t.
func (t *Trie) Get(key []byte) ([]byte, error) {
	path, _ := NormalizePath(KeyBytesToHex(key))
	return t.GetPath(path)
}

// GetPath returns value stored under the nibble path.
func (t *Trie) GetPath(path []byte) ([]byte, error) {
	curr := t.root
	for {
		switch n := curr.(type) {
		case *LeafNode:
			if bytes.Equal(n.key, path) {
				return copySlice(n.value), nil
			}
			return nil, ErrNotFound
		case *BranchNode:
			i, rest := splitPath(path)
			if i == lastChild {
				if v := n.Value(); v != nil {
					return copySlice(v), nil
				}
				return nil, ErrNotFound
			}
			curr, path = n.Children[i], rest
		case *ExtensionNode:
			if !bytes.HasPrefix(path, n.key) {
				return nil, ErrNotFound
			}
			curr, path = n.next, path[len(n.key):]
		case *HashNode:
			return nil, ErrUnresolvedHash
		case EmptyNode:
			return nil, ErrNotFound
		default:
			panic("invalid MPT node type")
		}
	}
}

// CheckAbsent returns ErrDuplicateKey if any pair of kvs with an empty value
// has its path present in the trie rooted at root. Pairs with values are
// checked by the insertion itself.
func CheckAbsent(root Node, kvs []KeyValue) error {
	if root == nil || root.Type() == EmptyT {
		return nil
	}
	t := NewTrie(root)
	for _, kv := range kvs {
		if len(kv.Value) != 0 {
			continue
		}
		_, err := t.GetPath(kv.Path)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %x", ErrDuplicateKey, kv.Path)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("%w: %x", err, kv.Path)
		}
	}
	return nil
}

// Put puts key-value pair in t, an existing value is overwritten. Empty
// value deletes the key.
func (t *Trie) Put(key, value []byte) error {
	path, _ := NormalizePath(KeyBytesToHex(key))
	return t.PutPath(path, value, true)
}

// PutPath puts value into t under the nibble path (terminator allowed).
// Unless overwrite is set, ErrDuplicateKey is returned for an existing key.
// Empty value deletes the key.
func (t *Trie) PutPath(path, value []byte, overwrite bool) error {
	path, err := NormalizePath(path)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		err = t.deletePath(path)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	r, err := t.putIntoNode(t.root, path, value, overwrite)
	if err != nil {
		return fmt.Errorf("key %x: %w", path, err)
	}
	t.root = r
	return nil
}

func (t *Trie) putIntoNode(curr Node, path, value []byte, overwrite bool) (Node, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return NewLeafNode(copySlice(path), value), nil
	case *LeafNode:
		return t.putIntoLeaf(n, path, value, overwrite)
	case *BranchNode:
		return t.putIntoBranch(n, path, value, overwrite)
	case *ExtensionNode:
		return t.putIntoExtension(n, path, value, overwrite)
	case *HashNode:
		return nil, ErrUnresolvedHash
	default:
		panic("invalid MPT node type")
	}
}

// putIntoLeaf puts value to trie if current node is a Leaf.
func (t *Trie) putIntoLeaf(curr *LeafNode, path, value []byte, overwrite bool) (Node, error) {
	if bytes.Equal(curr.key, path) {
		if !overwrite {
			return nil, ErrDuplicateKey
		}
		return NewLeafNode(curr.key, value), nil
	}
	return SplitLeaves(curr.key, curr.value, copySlice(path), value), nil
}

// putIntoBranch puts value to trie if current node is a Branch.
func (t *Trie) putIntoBranch(curr *BranchNode, path, value []byte, overwrite bool) (Node, error) {
	b := curr.Clone().(*BranchNode)
	i, path := splitPath(path)
	if i == lastChild {
		if !overwrite && curr.Value() != nil {
			return nil, ErrDuplicateKey
		}
		b.SetValue(value)
		return b, nil
	}
	r, err := t.putIntoNode(curr.Children[i], path, value, overwrite)
	if err != nil {
		return nil, err
	}
	b.Children[i] = r
	return b, nil
}

// putIntoExtension puts value to trie if current node is an Extension.
func (t *Trie) putIntoExtension(curr *ExtensionNode, path, value []byte, overwrite bool) (Node, error) {
	if bytes.HasPrefix(path, curr.key) {
		r, err := t.putIntoNode(curr.next, path[len(curr.key):], value, overwrite)
		if err != nil {
			return nil, err
		}
		return NewExtensionNode(curr.key, r), nil
	}
	return SplitExtension(curr, copySlice(path), NewLeafNode(nil, value)), nil
}

// SplitLeaves returns a subtrie holding two leaves with different paths
// relative to the same node.
func SplitLeaves(k1, v1, k2, v2 []byte) Node {
	c := CommonPrefixLen(k1, k2)
	b := NewBranchNode()
	placeLeaf(b, k1[c:], v1)
	placeLeaf(b, k2[c:], v2)
	return withPrefix(k1[:c], b)
}

// SplitExtension returns a subtrie replacing e after a path diverging from
// e's key has been added. sub is the node for the new path, if it's a leaf,
// its key is ignored and recomputed from path.
func SplitExtension(e *ExtensionNode, path []byte, sub Node) Node {
	c := CommonPrefixLen(e.key, path)
	b := NewBranchNode()
	b.Children[e.key[c]] = withPrefix(e.key[c+1:], e.next)
	if l, ok := sub.(*LeafNode); ok {
		placeLeaf(b, path[c:], l.value)
	} else {
		b.Children[path[c]] = sub
	}
	return withPrefix(e.key[:c], b)
}

// placeLeaf puts value into b under the path relative to b.
func placeLeaf(b *BranchNode, path, value []byte) {
	if len(path) == 0 {
		b.SetValue(value)
		return
	}
	b.Children[path[0]] = NewLeafNode(path[1:], value)
}

// withPrefix wraps n into an extension node with the specified key if it's
// not empty.
func withPrefix(key []byte, n Node) Node {
	if len(key) == 0 {
		return n
	}
	return NewExtensionNode(key, n)
}

// Delete removes key from trie.
// It returns no error on missing key.
func (t *Trie) Delete(key []byte) error {
	path, _ := NormalizePath(KeyBytesToHex(key))
	err := t.deletePath(path)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (t *Trie) deletePath(path []byte) error {
	r, err := t.deleteFromNode(t.root, path)
	if err != nil {
		return err
	}
	t.root = r
	return nil
}

func (t *Trie) deleteFromBranch(b *BranchNode, path []byte) (Node, error) {
	i, rest := splitPath(path)
	var r Node = EmptyNode{}
	if i != lastChild {
		var err error
		r, err = t.deleteFromNode(b.Children[i], rest)
		if err != nil {
			return nil, err
		}
	} else if b.Value() == nil {
		return nil, ErrNotFound
	}
	nb := b.Clone().(*BranchNode)
	nb.Children[i] = r

	var count, index int
	for j := range nb.Children {
		if nb.Children[j].Type() != EmptyT {
			index = j
			count++
		}
	}
	// count is >= 1 because branch node had at least 2 children before deletion.
	if count > 1 {
		return nb, nil
	}
	switch c := nb.Children[index].(type) {
	case *LeafNode:
		if index == lastChild {
			return c, nil
		}
		return NewLeafNode(concatPath([]byte{byte(index)}, c.key...), c.value), nil
	case *ExtensionNode:
		return NewExtensionNode(concatPath([]byte{byte(index)}, c.key...), c.next), nil
	case *BranchNode:
		return NewExtensionNode([]byte{byte(index)}, c), nil
	default:
		return nil, ErrUnresolvedHash
	}
}

func (t *Trie) deleteFromExtension(n *ExtensionNode, path []byte) (Node, error) {
	if !bytes.HasPrefix(path, n.key) {
		return nil, ErrNotFound
	}
	r, err := t.deleteFromNode(n.next, path[len(n.key):])
	if err != nil {
		return nil, err
	}
	switch nxt := r.(type) {
	case *ExtensionNode:
		return NewExtensionNode(concatPath(n.key, nxt.key...), nxt.next), nil
	case *LeafNode:
		return NewLeafNode(concatPath(n.key, nxt.key...), nxt.value), nil
	case EmptyNode:
		return nxt, nil
	default:
		return NewExtensionNode(n.key, r), nil
	}
}

func (t *Trie) deleteFromNode(curr Node, path []byte) (Node, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if bytes.Equal(n.key, path) {
			return EmptyNode{}, nil
		}
		return nil, ErrNotFound
	case *BranchNode:
		return t.deleteFromBranch(n, path)
	case *ExtensionNode:
		return t.deleteFromExtension(n, path)
	case *HashNode:
		return nil, ErrUnresolvedHash
	case EmptyNode:
		return nil, ErrNotFound
	default:
		panic("invalid MPT node type")
	}
}

// Hash returns root hash of t, computing all missing digests sequentially.
func (t *Trie) Hash() common.Hash {
	return Commit(t.root, 1)
}

// Collapse compresses all nodes at depth n to the hash nodes. Nodes with
// encoding shorter than a hash are embedded into their parents and are left
// as is. Root hash doesn't change, t.root must be committed before.
func (t *Trie) Collapse(depth int) {
	t.root = Collapse(t.root, depth)
}

// Collapse returns a copy of the trie rooted at node with all nodes at the
// specified depth replaced by hash nodes. The trie must be committed, the
// original nodes are not modified.
func Collapse(node Node, depth int) Node {
	if depth < 0 {
		panic("negative depth")
	}
	switch node.Type() {
	case HashT, EmptyT:
		return node
	}
	if depth == 0 {
		if isInline(node) {
			return node
		}
		return NewHashNode(node.Hash())
	}

	switch n := node.(type) {
	case *BranchNode:
		nb := *n
		for i := range lastChild {
			nb.Children[i] = Collapse(n.Children[i], depth-1)
		}
		return &nb
	case *ExtensionNode:
		ne := *n
		ne.next = Collapse(n.next, depth-1)
		return &ne
	case *LeafNode:
		return node
	default:
		panic("invalid MPT node type")
	}
}
