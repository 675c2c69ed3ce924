/*
Package twophase implements batch trie construction in two phases. The first
one builds the trie skeleton from a sorted batch by recursive partitioning on
the next nibble, sibling partitions are built in parallel and share no
mutable state. The second one is the parallel bottom-up commit provided by
mpt.Commit.
*/
package twophase

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultParallelThreshold is the minimal partition size that is built in a
// separate goroutine.
const DefaultParallelThreshold = 256

// Builder builds tries from batches of key-value pairs. It's safe for
// concurrent use, all builds share the same goroutine budget.
type Builder struct {
	workers   int
	threshold int
	sem       *semaphore.Weighted
}

// New returns a builder using up to workers goroutines per build (including
// the calling one). Partitions smaller than threshold are built inline,
// non-positive threshold means DefaultParallelThreshold.
func New(workers, threshold int) *Builder {
	if workers < 1 {
		workers = 1
	}
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	return &Builder{
		workers:   workers,
		threshold: threshold,
		sem:       semaphore.NewWeighted(int64(workers - 1)),
	}
}

// Build constructs the trie skeleton for kvs. Paths must be nibble paths
// without the terminator; pairs with empty values are checked for duplicates
// but not inserted. kvs is not modified.
func (b *Builder) Build(ctx context.Context, kvs []mpt.KeyValue) (mpt.Node, error) {
	return b.BuildOnto(ctx, mpt.EmptyNode{}, kvs)
}

// BuildOnto merges kvs into the trie rooted at root and returns the new root.
// Nodes reachable from root are never modified, unchanged subtrees are
// shared with the result. Keys already present in root cause ErrDuplicateKey
// (including the ones with empty values) and subtrees replaced by hash nodes cause ErrUnresolvedHash if any key
// needs to be put there.
func (b *Builder) BuildOnto(ctx context.Context, root mpt.Node, kvs []mpt.KeyValue) (mpt.Node, error) {
	sorted, err := b.Sort(ctx, kvs)
	if err != nil {
		return nil, err
	}
	if err := mpt.CheckAbsent(root, sorted); err != nil {
		return nil, err
	}
	sorted = slices.DeleteFunc(sorted, func(kv mpt.KeyValue) bool {
		return len(kv.Value) == 0
	})
	r, err := b.merge(ctx, root, sorted, 0)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Commit computes all missing digests of the trie and returns its root hash.
func (b *Builder) Commit(root mpt.Node) common.Hash {
	return mpt.Commit(root, b.workers)
}

// Sort returns a copy of kvs sorted by path. Pairs are distributed into
// buckets by the first nibble which are then sorted in parallel. Equal paths
// cause ErrDuplicateKey.
func (b *Builder) Sort(ctx context.Context, kvs []mpt.KeyValue) ([]mpt.KeyValue, error) {
	if len(kvs) < b.threshold || b.workers == 1 {
		res := slices.Clone(kvs)
		if err := sortBucket(res); err != nil {
			return nil, err
		}
		return res, nil
	}

	// Bucket 0 holds the empty path which precedes everything else.
	var buckets [17][]mpt.KeyValue
	for _, kv := range kvs {
		var i int
		if len(kv.Path) != 0 {
			i = int(kv.Path[0]) + 1
		}
		buckets[i] = append(buckets[i], kv)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range buckets {
		if len(buckets[i]) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return sortBucket(buckets[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make([]mpt.KeyValue, 0, len(kvs))
	for i := range buckets {
		res = append(res, buckets[i]...)
	}
	return res, nil
}

func sortBucket(kvs []mpt.KeyValue) error {
	slices.SortFunc(kvs, func(a, b mpt.KeyValue) int {
		return bytes.Compare(a.Path, b.Path)
	})
	for i := 1; i < len(kvs); i++ {
		if bytes.Equal(kvs[i-1].Path, kvs[i].Path) {
			return fmt.Errorf("%w: %x", mpt.ErrDuplicateKey, kvs[i].Path)
		}
	}
	return nil
}

// merge puts sorted kvs into the subtrie rooted at curr located at depth.
// All kvs share the first depth nibbles.
func (b *Builder) merge(ctx context.Context, curr mpt.Node, kvs []mpt.KeyValue, depth int) (mpt.Node, error) {
	if len(kvs) == 0 {
		return curr, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := curr.(type) {
	case mpt.EmptyNode:
		return b.build(ctx, kvs, depth)
	case *mpt.LeafNode:
		return b.mergeLeaf(ctx, n, kvs, depth)
	case *mpt.ExtensionNode:
		return b.mergeExtension(ctx, n, kvs, depth)
	case *mpt.BranchNode:
		return b.mergeBranch(ctx, n, kvs, depth)
	case *mpt.HashNode:
		return nil, fmt.Errorf("%w: %x", mpt.ErrUnresolvedHash, kvs[0].Path[:depth])
	default:
		panic("invalid MPT node type")
	}
}

// build constructs canonical subtrie for sorted kvs located at depth.
func (b *Builder) build(ctx context.Context, kvs []mpt.KeyValue, depth int) (mpt.Node, error) {
	switch len(kvs) {
	case 0:
		return mpt.EmptyNode{}, nil
	case 1:
		return mpt.NewLeafNode(kvs[0].Path[depth:], kvs[0].Value), nil
	}
	first, last := kvs[0].Path[depth:], kvs[len(kvs)-1].Path[depth:]
	p := mpt.CommonPrefixLen(first, last)
	br, err := b.mergeBranch(ctx, mpt.NewBranchNode(), kvs, depth+p)
	if err != nil || p == 0 {
		return br, err
	}
	return mpt.NewExtensionNode(first[:p], br), nil
}

// mergeLeaf rebuilds the subtrie from kvs and the leaf's own pair.
func (b *Builder) mergeLeaf(ctx context.Context, l *mpt.LeafNode, kvs []mpt.KeyValue, depth int) (mpt.Node, error) {
	path := make([]byte, 0, depth+len(l.Key()))
	path = append(path, kvs[0].Path[:depth]...)
	path = append(path, l.Key()...)

	i, found := slices.BinarySearchFunc(kvs, path, func(kv mpt.KeyValue, p []byte) int {
		return bytes.Compare(kv.Path, p)
	})
	if found {
		return nil, fmt.Errorf("%w: %x", mpt.ErrDuplicateKey, path)
	}
	all := make([]mpt.KeyValue, 0, len(kvs)+1)
	all = append(all, kvs[:i]...)
	all = append(all, mpt.KeyValue{Path: path, Value: l.Value()})
	all = append(all, kvs[i:]...)
	return b.build(ctx, all, depth)
}

// mergeExtension descends into the extension if all kvs go through it, or
// splits it otherwise.
func (b *Builder) mergeExtension(ctx context.Context, e *mpt.ExtensionNode, kvs []mpt.KeyValue, depth int) (mpt.Node, error) {
	key := e.Key()
	// kvs are sorted, so the first and the last ones have the shortest
	// common prefixes with the key.
	c := min(mpt.CommonPrefixLen(key, kvs[0].Path[depth:]),
		mpt.CommonPrefixLen(key, kvs[len(kvs)-1].Path[depth:]))
	if c == len(key) {
		next, err := b.merge(ctx, e.Next(), kvs, depth+c)
		if err != nil {
			return nil, err
		}
		return mpt.NewExtensionNode(key, next), nil
	}

	br := mpt.NewBranchNode()
	if c+1 == len(key) {
		br.Children[key[c]] = e.Next()
	} else {
		br.Children[key[c]] = mpt.NewExtensionNode(key[c+1:], e.Next())
	}
	r, err := b.mergeBranch(ctx, br, kvs, depth+c)
	if err != nil || c == 0 {
		return r, err
	}
	return mpt.NewExtensionNode(key[:c], r), nil
}

// mergeBranch returns a copy of br with kvs merged into it. Children
// partitions of at least threshold pairs are processed in parallel if
// there are free workers.
func (b *Builder) mergeBranch(ctx context.Context, br *mpt.BranchNode, kvs []mpt.KeyValue, depth int) (mpt.Node, error) {
	res := br.Clone().(*mpt.BranchNode)
	if len(kvs[0].Path) == depth {
		if br.Value() != nil {
			return nil, fmt.Errorf("%w: %x", mpt.ErrDuplicateKey, kvs[0].Path)
		}
		res.SetValue(kvs[0].Value)
		kvs = kvs[1:]
	}

	var (
		wg   sync.WaitGroup
		errs [16]error
	)
	for len(kvs) > 0 {
		nib := kvs[0].Path[depth]
		end := sort.Search(len(kvs), func(i int) bool {
			return kvs[i].Path[depth] > nib
		})
		part := kvs[:end]
		kvs = kvs[end:]

		if len(part) >= b.threshold && b.sem.TryAcquire(1) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer b.sem.Release(1)
				res.Children[nib], errs[nib] = b.merge(ctx, br.Children[nib], part, depth+1)
			}()
			continue
		}
		res.Children[nib], errs[nib] = b.merge(ctx, br.Children[nib], part, depth+1)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
