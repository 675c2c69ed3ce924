package gmpt

import (
	"context"
	"testing"

	"github.com/TKONIY/gmpt/internal/mpttest"
	"github.com/TKONIY/gmpt/internal/random"
	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var strategies = []Strategy{TwoPhase, OLC}

func newTestEngine(t *testing.T, f ...func(*config.EngineConfiguration)) *Engine {
	cfg := config.DefaultEngineConfiguration()
	cfg.Workers = 8
	cfg.ParallelThreshold = 16
	cfg.PartitionSize = 8
	for _, fn := range f {
		fn(&cfg)
	}
	e, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return e
}

func pairsInput(ps []mpttest.Pair, layout Layout) *Input {
	in := NewInput(layout, len(ps))
	for _, p := range ps {
		in.AddRaw(p.Key, p.Value)
	}
	return in
}

func resetDefault() {
	defaultLock.Lock()
	defaultEngine = nil
	defaultLock.Unlock()
}

func TestEngine_Determinism(t *testing.T) {
	e := newTestEngine(t)
	ps := mpttest.Pairs(3000, 32, 100)
	expected := mpttest.StackRoot(ps)

	for range 3 {
		shuffled := random.Shuffle(ps)
		for _, layout := range []Layout{BoundaryLayout, RangeLayout} {
			h, err := e.BuildMPT2Phase(context.Background(), StateTrie, pairsInput(shuffled, layout))
			require.NoError(t, err)
			require.Equal(t, expected, h)

			h, err = e.BuildMPTOLC(context.Background(), StateTrie, pairsInput(shuffled, layout))
			require.NoError(t, err)
			require.Equal(t, expected, h)
		}
	}
}

func TestEngine_Scenario(t *testing.T) {
	in := NewInput(BoundaryLayout, 3)
	in.Add([]byte{0xa, 0x1}, []byte("value a1"))
	in.Add([]byte{0xa, 0x2}, []byte("value a2"))
	in.Add([]byte{0xb, 0x1}, []byte("value b1"))

	tr := mpt.NewTrie(nil)
	require.NoError(t, tr.PutPath([]byte{0xa, 0x1}, []byte("value a1"), false))
	require.NoError(t, tr.PutPath([]byte{0xa, 0x2}, []byte("value a2"), false))
	require.NoError(t, tr.PutPath([]byte{0xb, 0x1}, []byte("value b1"), false))
	expected := tr.Hash()

	e := newTestEngine(t)
	for _, s := range strategies {
		sess, err := e.NewSession(s, TransactionTrie)
		require.NoError(t, err)
		require.NoError(t, sess.Insert(in))
		h, err := sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, expected, h)

		n, err := sess.Node()
		require.NoError(t, err)
		root := n.(*mpt.BranchNode)
		require.Equal(t, mpt.BranchT, root.Children[0xa].Type())
		require.Equal(t, mpt.LeafT, root.Children[0xb].Type())
	}

	t.Run("Preprocess twice", func(t *testing.T) {
		resetDefault()
		t.Cleanup(resetDefault)

		_, err := BuildMPT2Phase(context.Background(), TransactionTrie, in)
		require.ErrorIs(t, err, ErrNotInitialized)
		_, err = BuildMPTOLC(context.Background(), TransactionTrie, in)
		require.ErrorIs(t, err, ErrNotInitialized)

		cfg := config.DefaultEngineConfiguration()
		e1, err := Preprocess(cfg)
		require.NoError(t, err)
		h1, err := BuildMPT2Phase(context.Background(), TransactionTrie, in)
		require.NoError(t, err)

		e2, err := Preprocess(cfg)
		require.NoError(t, err)
		require.Same(t, e1, e2)
		require.Same(t, e1, Default())
		h2, err := BuildMPTOLC(context.Background(), TransactionTrie, in)
		require.NoError(t, err)
		require.Equal(t, h1, h2)
		require.Equal(t, expected, h2)

		cfg.Workers = 3
		_, err = Preprocess(cfg)
		require.ErrorIs(t, err, ErrAlreadyInitialized)
	})
}

func TestEngine_Duplicates(t *testing.T) {
	e := newTestEngine(t)
	ps := mpttest.Pairs(500, 32, 20)
	dup := append(ps[:len(ps):len(ps)], mpttest.Pair{Key: ps[42].Key, Value: []byte("other")})

	for _, s := range strategies {
		sess, err := e.NewSession(s, StateTrie)
		require.NoError(t, err)
		require.NoError(t, sess.Insert(pairsInput(dup, BoundaryLayout)))
		h, err := sess.Commit(context.Background())
		require.ErrorIs(t, err, ErrDuplicateKey)
		require.Equal(t, common.Hash{}, h)
		_, err = sess.Root()
		require.ErrorIs(t, err, ErrBuildNotFinalized)

		// Pending pairs are discarded after a failure.
		require.NoError(t, sess.Insert(pairsInput(ps, BoundaryLayout)))
		h, err = sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, mpttest.StackRoot(ps), h)

		// Keys committed before are duplicates too.
		require.NoError(t, sess.Insert(pairsInput(ps[10:11], BoundaryLayout)))
		_, err = sess.Commit(context.Background())
		require.ErrorIs(t, err, ErrDuplicateKey)

		// Even with an absent value.
		require.NoError(t, sess.Insert(pairsInput([]mpttest.Pair{{Key: ps[3].Key}}, BoundaryLayout)))
		h, err = sess.Commit(context.Background())
		require.ErrorIs(t, err, ErrDuplicateKey)
		require.Equal(t, common.Hash{}, h)

		// Absent key not in the trie doesn't change it.
		require.NoError(t, sess.Insert(pairsInput([]mpttest.Pair{{Key: random.Bytes(32)}}, BoundaryLayout)))
		h, err = sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, mpttest.StackRoot(ps), h)
	}
}

func TestEngine_Incremental(t *testing.T) {
	e := newTestEngine(t)
	ps := mpttest.Pairs(2000, 32, 60)
	expected := mpttest.StackRoot(ps)

	for _, s := range strategies {
		sess, err := e.NewSession(s, StateTrie)
		require.NoError(t, err)
		_, err = sess.Root()
		require.ErrorIs(t, err, ErrBuildNotFinalized)

		require.NoError(t, sess.Insert(pairsInput(ps[:700], RangeLayout)))
		hA, err := sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, mpttest.StackRoot(ps[:700]), hA)
		root, err := sess.Root()
		require.NoError(t, err)
		require.Equal(t, hA, root)

		require.NoError(t, sess.Insert(pairsInput(ps[700:], BoundaryLayout)))
		_, err = sess.Root()
		require.ErrorIs(t, err, ErrBuildNotFinalized)
		h, err := sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, expected, h)

		st := sess.Stats()
		require.Equal(t, 2000, st.Keys)
		require.Equal(t, 2, st.Commits)

		// The first trie is still cached and can be extended differently.
		other, err := e.Resume(hA, OLC, StateTrie)
		require.NoError(t, err)
		require.NoError(t, other.Insert(pairsInput(ps[700:1000], BoundaryLayout)))
		h, err = other.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, mpttest.StackRoot(ps[:1000]), h)
	}

	t.Run("Resume", func(t *testing.T) {
		_, err := e.Resume(random.Hash(), TwoPhase, StateTrie)
		require.ErrorIs(t, err, ErrUnknownRoot)

		sess, err := e.Resume(mpt.EmptyRootHash, TwoPhase, StateTrie)
		require.NoError(t, err)
		h, err := sess.Commit(context.Background())
		require.NoError(t, err)
		require.Equal(t, mpt.EmptyRootHash, h)

		noCache := newTestEngine(t, func(c *config.EngineConfiguration) { c.SessionCacheSize = 0 })
		sess, err = noCache.NewSession(OLC, StateTrie)
		require.NoError(t, err)
		require.NoError(t, sess.Insert(pairsInput(ps[:10], BoundaryLayout)))
		h, err = sess.Commit(context.Background())
		require.NoError(t, err)
		_, err = noCache.Resume(h, OLC, StateTrie)
		require.ErrorIs(t, err, ErrUnknownRoot)
	})
}

func TestEngine_Collapse(t *testing.T) {
	e := newTestEngine(t)
	ps := mpttest.Pairs(1000, 32, 60)

	for _, s := range strategies {
		sess, err := e.NewSession(s, StateTrie)
		require.NoError(t, err)
		require.ErrorIs(t, sess.Collapse(1), ErrBuildNotFinalized)
		require.NoError(t, sess.Insert(pairsInput(ps, BoundaryLayout)))
		h, err := sess.Commit(context.Background())
		require.NoError(t, err)

		for depth := 3; depth >= 0; depth-- {
			require.NoError(t, sess.Collapse(depth))
			r, err := sess.Root()
			require.NoError(t, err)
			require.Equal(t, h, r)
			n, err := sess.Node()
			require.NoError(t, err)
			require.Equal(t, h, mpt.RootHash(n))
		}
		require.Error(t, sess.Collapse(-1))

		// Everything is behind a hash now.
		require.NoError(t, sess.Insert(pairsInput(mpttest.Pairs(1, 32, 10), BoundaryLayout)))
		_, err = sess.Commit(context.Background())
		require.ErrorIs(t, err, ErrUnresolvedHash)
	}
}

func TestEngine_EmptyValues(t *testing.T) {
	e := newTestEngine(t)
	ps := mpttest.Pairs(300, 32, 20)
	for i := range ps {
		if i%4 == 0 {
			ps[i].Value = nil
		}
	}
	for _, s := range strategies {
		h, err := e.Build(context.Background(), s, StateTrie, pairsInput(ps, BoundaryLayout))
		require.NoError(t, err)
		require.Equal(t, mpttest.StackRoot(ps), h)
	}
	for _, s := range strategies {
		h, err := e.Build(context.Background(), s, StateTrie, NewInput(BoundaryLayout, 0))
		require.NoError(t, err)
		require.Equal(t, mpt.EmptyRootHash, h)
	}
}

func TestEngine_Errors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.NewSession(Strategy(5), StateTrie)
	require.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = e.NewSession(OLC, TrieType(5))
	require.ErrorIs(t, err, ErrInvalidTrieType)

	t.Run("StateKeyLength", func(t *testing.T) {
		in := NewInput(BoundaryLayout, 1)
		in.AddRaw([]byte{1, 2, 3}, []byte{1})
		_, err := e.BuildMPTOLC(context.Background(), StateTrie, in)
		require.ErrorIs(t, err, ErrMalformedKey)
		_, err = e.BuildMPTOLC(context.Background(), ReceiptTrie, in)
		require.NoError(t, err)
	})
	t.Run("Malformed", func(t *testing.T) {
		in := NewInput(BoundaryLayout, 1)
		in.Add([]byte{1, 20}, []byte{1})
		for _, s := range strategies {
			_, err := e.Build(context.Background(), s, TransactionTrie, in)
			require.ErrorIs(t, err, ErrMalformedKey)
		}
	})
	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		in := pairsInput(mpttest.Pairs(100, 32, 10), BoundaryLayout)
		for _, s := range strategies {
			h, err := e.Build(ctx, s, StateTrie, in)
			require.ErrorIs(t, err, context.Canceled)
			require.Equal(t, common.Hash{}, h)
		}
	})
	t.Run("Config", func(t *testing.T) {
		cfg := config.DefaultEngineConfiguration()
		cfg.Workers = -1
		_, err := New(cfg, nil)
		require.Error(t, err)
	})
}

func TestEngine_CopyValues(t *testing.T) {
	e := newTestEngine(t, func(c *config.EngineConfiguration) { c.CopyValues = true })
	ps := mpttest.Pairs(100, 32, 20)
	in := pairsInput(ps, BoundaryLayout)

	sess, err := e.NewSession(TwoPhase, StateTrie)
	require.NoError(t, err)
	require.NoError(t, sess.Insert(in))
	clear(in.ValuesBytes)
	clear(in.KeysHexs)
	h, err := sess.Commit(context.Background())
	require.NoError(t, err)
	require.Equal(t, mpttest.StackRoot(ps), h)
}

func TestEngine_Metrics(t *testing.T) {
	e := newTestEngine(t)
	var (
		builds = testutil.ToFloat64(buildsTotal.WithLabelValues(OLC.String(), ReceiptTrie.String()))
		keys   = testutil.ToFloat64(keysTotal.WithLabelValues(OLC.String()))
		errs   = testutil.ToFloat64(buildErrors.WithLabelValues(OLC.String()))
	)
	ps := mpttest.Pairs(50, 32, 10)
	_, err := e.BuildMPTOLC(context.Background(), ReceiptTrie, pairsInput(ps, BoundaryLayout))
	require.NoError(t, err)
	_, err = e.BuildMPTOLC(context.Background(), ReceiptTrie, pairsInput(append(ps, ps[0]), BoundaryLayout))
	require.Error(t, err)

	require.Equal(t, builds+1, testutil.ToFloat64(buildsTotal.WithLabelValues(OLC.String(), ReceiptTrie.String())))
	require.Equal(t, keys+50, testutil.ToFloat64(keysTotal.WithLabelValues(OLC.String())))
	require.Equal(t, errs+1, testutil.ToFloat64(buildErrors.WithLabelValues(OLC.String())))
}
