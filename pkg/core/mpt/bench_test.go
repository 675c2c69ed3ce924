package mpt

import (
	"strconv"
	"testing"

	"github.com/TKONIY/gmpt/internal/random"
)

func benchmarkBytes(b *testing.B, n Node) {
	inv := n.(interface{ invalidateCache() })
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		inv.invalidateCache()
		_ = n.Bytes()
	}
}

func BenchmarkBytes(b *testing.B) {
	b.Run("extension", func(b *testing.B) {
		br := NewBranchNode()
		br.Children[0] = NewLeafNode(random.Bytes(10), random.Bytes(10))
		n := NewExtensionNode(random.Bytes(10), br)
		benchmarkBytes(b, n)
	})
	b.Run("leaf", func(b *testing.B) {
		n := NewLeafNode(make([]byte, 15), make([]byte, 15))
		benchmarkBytes(b, n)
	})
	b.Run("branch", func(b *testing.B) {
		n := NewBranchNode()
		n.Children[0] = NewLeafNode(nil, random.Bytes(10))
		n.Children[4] = NewLeafNode(nil, random.Bytes(10))
		n.Children[7] = NewLeafNode(nil, random.Bytes(10))
		n.Children[8] = NewLeafNode(nil, random.Bytes(10))
		benchmarkBytes(b, n)
	})
}

func BenchmarkCommit(b *testing.B) {
	keys := random.Keys(10000, 32)
	for _, workers := range []int{1, 8} {
		b.Run("workers="+strconv.Itoa(workers), func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				b.StopTimer()
				tr := NewTrie(nil)
				for _, k := range keys {
					_ = tr.Put(k, k)
				}
				b.StartTimer()
				_ = Commit(tr.Root(), workers)
			}
		})
	}
}
