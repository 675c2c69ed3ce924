package olc

import (
	"sync/atomic"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
)

type kind uint8

const (
	kindLeaf kind = iota + 1
	kindExtension
	kindBranch
	kindHash
	// kindRoot is a sentinel branch holding the trie root in the first slot.
	kindRoot
)

// node is an arena node. Leaves, extensions and hash nodes are immutable
// once published. Branches (and the root sentinel) are updated by swapping
// their body under the version latch: odd version means a writer holds the
// latch, every completed update advances the version by two.
type node struct {
	version atomic.Uint64
	kind    kind
	key     []byte
	value   []byte
	next    ref
	body    atomic.Pointer[branchBody]

	// orig is the committed node this one was loaded from. It's reused when
	// the subtree is not changed by the build.
	orig     mpt.Node
	origBody *branchBody
}

type branchBody struct {
	children [16]ref
	value    []byte
}

func (a *arena) newLeaf(key, value []byte) ref {
	r, n := a.alloc()
	n.kind = kindLeaf
	n.key = key
	n.value = value
	return r
}

func (a *arena) newExtension(key []byte, next ref) ref {
	r, n := a.alloc()
	n.kind = kindExtension
	n.key = key
	n.next = next
	return r
}

func (a *arena) newBranch(kd kind, body *branchBody) ref {
	r, n := a.alloc()
	n.kind = kd
	n.body.Store(body)
	return r
}

// withPrefix wraps r into an extension if key is not empty.
func (a *arena) withPrefix(key []byte, r ref) ref {
	if len(key) == 0 {
		return r
	}
	return a.newExtension(key, r)
}

// place puts a leaf into body at the path relative to the branch.
func (a *arena) place(body *branchBody, path, value []byte) {
	if len(path) == 0 {
		body.value = value
		return
	}
	body.children[path[0]] = a.newLeaf(path[1:], value)
}
