package olc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/twmb/murmur3"
	"golang.org/x/sync/errgroup"
)

const (
	dupShards = 64
	// dupSequentialLimit is the batch size below which the check runs in a
	// single goroutine.
	dupSequentialLimit = 4096
)

// CheckDuplicates returns ErrDuplicateKey if kvs has the same path more than
// once. Paths are hashed and distributed into shards by the hash, then
// shards are checked in parallel.
func CheckDuplicates(ctx context.Context, kvs []mpt.KeyValue, workers int) error {
	if workers <= 1 || len(kvs) < dupSequentialLimit {
		return checkAll(kvs)
	}

	// Every worker distributes its own part of kvs, so no synchronization
	// is needed until the shards are checked.
	var (
		part   = (len(kvs) + workers - 1) / workers
		hashes = make([]uint64, len(kvs))
		shards = make([][dupShards][]int, workers)
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		lo, hi := min(w*part, len(kvs)), min((w+1)*part, len(kvs))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				h := murmur3.Sum64(kvs[i].Path)
				hashes[i] = h
				shards[w][h%dupShards] = append(shards[w][h%dupShards], i)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for s := range dupShards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var idx []int
			for w := range shards {
				idx = append(idx, shards[w][s]...)
			}
			if len(idx) < 2 {
				return nil
			}
			return checkShard(kvs, idx, hashes)
		})
	}
	return g.Wait()
}

// checkAll checks all of kvs in a single goroutine.
func checkAll(kvs []mpt.KeyValue) error {
	seen := make(map[uint64][]int, len(kvs))
	for i := range kvs {
		if err := checkSeen(seen, kvs, i, murmur3.Sum64(kvs[i].Path)); err != nil {
			return err
		}
	}
	return nil
}

// checkShard checks kvs with the specified indexes only, hashes are
// precomputed path hashes of kvs.
func checkShard(kvs []mpt.KeyValue, idx []int, hashes []uint64) error {
	seen := make(map[uint64][]int, len(idx))
	for _, i := range idx {
		if err := checkSeen(seen, kvs, i, hashes[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkSeen(seen map[uint64][]int, kvs []mpt.KeyValue, i int, h uint64) error {
	for _, prev := range seen[h] {
		if bytes.Equal(kvs[prev].Path, kvs[i].Path) {
			return fmt.Errorf("%w: %x", mpt.ErrDuplicateKey, kvs[i].Path)
		}
	}
	seen[h] = append(seen[h], i)
	return nil
}
