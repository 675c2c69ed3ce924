/*
Package olc implements concurrent trie construction with optimistic lock
coupling. Many goroutines insert into a shared arena-allocated trie:
traversal takes no locks and records the version of the branch it's going
to change, the change is applied only if the version is still the same,
otherwise the insertion is retried from that branch.

Branches are never replaced or moved once published (a split only puts new
nodes above them), so a retry never has to restart from the root.
*/
package olc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPartitionSize is the default number of keys a worker takes at
	// once.
	DefaultPartitionSize = 1024
	// DefaultSpinAttempts is the default number of retries before backing
	// off.
	DefaultSpinAttempts = 16
)

// Options are the builder parameters.
type Options struct {
	// Workers is the number of inserting goroutines.
	Workers int
	// PartitionSize is the number of keys taken by a worker at once.
	PartitionSize int
	// SpinAttempts is the number of retries yielding the processor before
	// switching to exponential backoff, negative value disables spinning.
	SpinAttempts int
}

// Builder is a single concurrent build. It must be released with Release
// when it's not needed anymore. Insert may be called concurrently, but not
// concurrently with Load, Freeze or Release.
type Builder struct {
	opts    Options
	arena   *arena
	root    ref
	retries atomic.Uint64
	loaded  bool
}

// New returns a builder for an empty trie.
func New(opts Options) *Builder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PartitionSize < 1 {
		opts.PartitionSize = DefaultPartitionSize
	}
	if opts.SpinAttempts == 0 {
		opts.SpinAttempts = DefaultSpinAttempts
	}
	b := &Builder{
		opts:  opts,
		arena: getArena(),
	}
	b.root = b.arena.newBranch(kindRoot, new(branchBody))
	return b
}

// Retries returns the number of times insertions were retried because of
// contention.
func (b *Builder) Retries() uint64 {
	return b.retries.Load()
}

// Nodes returns the number of nodes allocated by the build.
func (b *Builder) Nodes() int {
	return b.arena.size()
}

// Release returns builder memory to the pool, b can't be used after that.
func (b *Builder) Release() {
	if b.arena != nil {
		putArena(b.arena)
		b.arena = nil
	}
}

// InsertBatch inserts kvs using the configured number of workers. Paths
// must be nibble paths without the terminator, pairs with empty values are
// checked for duplicates (against the loaded trie too), but not inserted.
// The first error stops all workers, the trie must be discarded in this
// case. Insertion of all keys is complete when InsertBatch returns.
func (b *Builder) InsertBatch(ctx context.Context, kvs []mpt.KeyValue) error {
	if err := CheckDuplicates(ctx, kvs, b.opts.Workers); err != nil {
		return err
	}
	if err := b.checkAbsent(kvs); err != nil {
		return err
	}

	var (
		pos   atomic.Int64
		size  = b.opts.PartitionSize
		parts = int64((len(kvs) + size - 1) / size)
	)
	g, gctx := errgroup.WithContext(ctx)
	for range min(int64(b.opts.Workers), parts) {
		g.Go(func() error {
			r := newRetrier(b.opts.SpinAttempts)
			defer func() { b.retries.Add(r.total) }()
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				p := pos.Add(1) - 1
				if p >= parts {
					return nil
				}
				for _, kv := range kvs[p*int64(size) : min((p+1)*int64(size), int64(len(kvs)))] {
					if len(kv.Value) == 0 {
						continue
					}
					r.reset()
					if err := b.insert(kv.Path, kv.Value, r); err != nil {
						return fmt.Errorf("key %x: %w", kv.Path, err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// checkAbsent returns ErrDuplicateKey if any pair of kvs with an empty value
// has its path in the trie. It must not run concurrently with insertions.
func (b *Builder) checkAbsent(kvs []mpt.KeyValue) error {
	top := b.arena.get(b.root).body.Load().children[0]
	for _, kv := range kvs {
		if len(kv.Value) != 0 {
			continue
		}
		ok, err := b.arena.contains(top, kv.Path)
		if err != nil {
			return fmt.Errorf("key %x: %w", kv.Path, err)
		}
		if ok {
			return fmt.Errorf("%w: %x", mpt.ErrDuplicateKey, kv.Path)
		}
	}
	return nil
}

// contains reports whether path is stored in the subtrie rooted at r.
func (a *arena) contains(r ref, path []byte) (bool, error) {
	for r != 0 {
		n := a.get(r)
		switch n.kind {
		case kindLeaf:
			return bytes.Equal(n.key, path), nil
		case kindExtension:
			if !bytes.HasPrefix(path, n.key) {
				return false, nil
			}
			r, path = n.next, path[len(n.key):]
		case kindBranch:
			body := n.body.Load()
			if len(path) == 0 {
				return body.value != nil, nil
			}
			r, path = body.children[path[0]], path[1:]
		case kindHash:
			return false, mpt.ErrUnresolvedHash
		default:
			panic("olc: invalid node kind")
		}
	}
	return false, nil
}

// Insert puts a single pair into the trie. It's safe for concurrent use.
func (b *Builder) Insert(path, value []byte) error {
	if len(value) == 0 {
		return nil
	}
	r := newRetrier(b.opts.SpinAttempts)
	err := b.insert(path, value, r)
	b.retries.Add(r.total)
	return err
}

// insert implements the insertion protocol. parent is always a branch (or
// the root sentinel) located at depth, the child slot for path is examined
// and changed by swapping the parent's body.
func (b *Builder) insert(path, value []byte, r *retrier) error {
	var (
		a         = b.arena
		parentRef = b.root
		depth     = 0
	)
	for {
		parent := a.get(parentRef)
		v := parent.version.Load()
		if v&1 != 0 {
			r.wait()
			continue
		}
		body := parent.body.Load()

		var slot, childDepth int
		if parent.kind == kindRoot {
			childDepth = depth
		} else {
			if len(path) == depth {
				if body.value != nil {
					return mpt.ErrDuplicateKey
				}
				if !b.update(parent, v, body, func(nb *branchBody) { nb.value = value }) {
					r.wait()
					continue
				}
				return nil
			}
			slot, childDepth = int(path[depth]), depth+1
		}

		rest := path[childDepth:]
		cr := body.children[slot]
		if cr == 0 {
			if !b.update(parent, v, body, func(nb *branchBody) {
				nb.children[slot] = a.newLeaf(rest, value)
			}) {
				r.wait()
				continue
			}
			return nil
		}

		child := a.get(cr)
		var split func(nb *branchBody)
		switch child.kind {
		case kindBranch:
			parentRef, depth = cr, childDepth
			continue
		case kindExtension:
			c := mpt.CommonPrefixLen(child.key, rest)
			if c == len(child.key) {
				if a.get(child.next).kind == kindHash {
					return mpt.ErrUnresolvedHash
				}
				parentRef, depth = child.next, childDepth+c
				continue
			}
			split = func(nb *branchBody) {
				nb.children[slot] = a.splitExtension(child, rest, value, c)
			}
		case kindLeaf:
			if bytes.Equal(child.key, rest) {
				return mpt.ErrDuplicateKey
			}
			split = func(nb *branchBody) {
				nb.children[slot] = a.splitLeaves(child, rest, value)
			}
		case kindHash:
			return mpt.ErrUnresolvedHash
		default:
			panic("olc: invalid node kind")
		}
		if !b.update(parent, v, body, split) {
			r.wait()
			continue
		}
		return nil
	}
}

// update latches n if its version is still v, publishes a modified copy of
// body and unlatches n. It returns false if n was changed after v.
func (b *Builder) update(n *node, v uint64, body *branchBody, f func(*branchBody)) bool {
	if !n.version.CompareAndSwap(v, v+1) {
		return false
	}
	nb := *body
	f(&nb)
	n.body.Store(&nb)
	n.version.Add(1)
	return true
}

// splitLeaves returns a subtrie holding both the leaf l and the new pair.
func (a *arena) splitLeaves(l *node, path, value []byte) ref {
	c := mpt.CommonPrefixLen(l.key, path)
	body := new(branchBody)
	a.place(body, l.key[c:], l.value)
	a.place(body, path[c:], value)
	return a.withPrefix(l.key[:c], a.newBranch(kindBranch, body))
}

// splitExtension returns a subtrie replacing e after the new path diverging
// from e's key at c is added.
func (a *arena) splitExtension(e *node, path, value []byte, c int) ref {
	body := new(branchBody)
	body.children[e.key[c]] = a.withPrefix(e.key[c+1:], e.next)
	a.place(body, path[c:], value)
	return a.withPrefix(e.key[:c], a.newBranch(kindBranch, body))
}

// Load makes the builder extend the committed trie rooted at root instead of
// an empty one. It must be called before any insertion. Unchanged subtrees
// of root are reused by Freeze as is.
func (b *Builder) Load(root mpt.Node) {
	if b.loaded {
		panic("olc: trie is already loaded")
	}
	b.loaded = true
	rt := b.arena.get(b.root)
	rt.body.Store(&branchBody{children: [16]ref{b.arena.thaw(root)}})
}

func (a *arena) thaw(n mpt.Node) ref {
	switch n := n.(type) {
	case mpt.EmptyNode:
		return 0
	case *mpt.LeafNode:
		r, t := a.alloc()
		t.kind, t.key, t.value, t.orig = kindLeaf, n.Key(), n.Value(), n
		return r
	case *mpt.ExtensionNode:
		next := a.thaw(n.Next())
		r, t := a.alloc()
		t.kind, t.key, t.next, t.orig = kindExtension, n.Key(), next, n
		return r
	case *mpt.BranchNode:
		body := &branchBody{value: n.Value()}
		for i := range body.children {
			body.children[i] = a.thaw(n.Children[i])
		}
		r, t := a.alloc()
		t.kind, t.orig, t.origBody = kindBranch, n, body
		t.body.Store(body)
		return r
	case *mpt.HashNode:
		r, t := a.alloc()
		t.kind, t.orig = kindHash, n
		return r
	default:
		panic("invalid MPT node type")
	}
}

// Freeze converts the trie into mpt nodes. It must be called after all
// insertions are completed. Subtrees of the root branch are converted in
// parallel.
func (b *Builder) Freeze() mpt.Node {
	a := b.arena
	top := a.get(b.root).body.Load().children[0]
	if top == 0 {
		return mpt.EmptyNode{}
	}
	// Find the first branch, it can be below an extension.
	var ext *node
	br := a.get(top)
	if br.kind == kindExtension {
		ext, br = br, a.get(br.next)
	}
	if br.kind != kindBranch || b.opts.Workers == 1 {
		n, _ := a.freeze(top)
		return n
	}

	var (
		body     = br.body.Load()
		children [16]mpt.Node
		changed  [16]bool
		wg       sync.WaitGroup
	)
	for i, c := range body.children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			children[i], changed[i] = a.freeze(c)
		}()
	}
	wg.Wait()

	res, ch := a.assembleBranch(br, body, children, changed)
	if ext == nil {
		return res
	}
	if !ch && ext.orig != nil {
		return ext.orig
	}
	return mpt.NewExtensionNode(ext.key, res)
}

// freeze converts the subtrie at r, it also tells whether the result differs
// from the loaded committed subtrie.
func (a *arena) freeze(r ref) (mpt.Node, bool) {
	if r == 0 {
		return mpt.EmptyNode{}, false
	}
	n := a.get(r)
	switch n.kind {
	case kindLeaf:
		if n.orig != nil {
			return n.orig, false
		}
		return mpt.NewLeafNode(n.key, n.value), true
	case kindExtension:
		next, ch := a.freeze(n.next)
		if !ch && n.orig != nil {
			return n.orig, false
		}
		return mpt.NewExtensionNode(n.key, next), true
	case kindBranch:
		var (
			body     = n.body.Load()
			children [16]mpt.Node
			changed  [16]bool
		)
		for i, c := range body.children {
			children[i], changed[i] = a.freeze(c)
		}
		return a.assembleBranch(n, body, children, changed)
	case kindHash:
		return n.orig, false
	default:
		panic("olc: invalid node kind")
	}
}

func (a *arena) assembleBranch(n *node, body *branchBody, children [16]mpt.Node, changed [16]bool) (mpt.Node, bool) {
	ch := n.orig == nil || body != n.origBody
	for i := range changed {
		ch = ch || changed[i]
	}
	if !ch {
		return n.orig, false
	}
	res := mpt.NewBranchNode()
	copy(res.Children[:], children[:])
	if body.value != nil {
		res.SetValue(body.value)
	}
	return res, true
}

// Commit freezes the trie and computes its root hash using the configured
// number of workers.
func (b *Builder) Commit() (mpt.Node, common.Hash) {
	root := b.Freeze()
	return root, mpt.Commit(root, b.opts.Workers)
}
