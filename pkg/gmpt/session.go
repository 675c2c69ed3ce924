package gmpt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/TKONIY/gmpt/pkg/core/mpt/olc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stateKeyLen is the length of state trie keys in nibbles (hashed address).
const stateKeyLen = 2 * common.HashLength

// Stats is the session build statistics.
type Stats struct {
	// Keys is the number of pairs committed so far, absent values included.
	Keys int
	// Commits is the number of successful commits.
	Commits int
	// Retries is the number of OLC insertion retries.
	Retries uint64
	// Nodes is the number of arena nodes allocated by OLC builds.
	Nodes int
	// Duration is the total time spent in commits.
	Duration time.Duration
}

// Session accumulates batches and builds a trie from them on Commit. A
// committed session can be extended with more batches and committed again.
// The session is safe for concurrent use.
type Session struct {
	id       uuid.UUID
	engine   *Engine
	strategy Strategy
	role     TrieType

	lock      sync.Mutex
	pending   []mpt.KeyValue
	node      mpt.Node
	root      common.Hash
	finalized bool
	stats     Stats
}

func (e *Engine) newSession(s Strategy, role TrieType, base mpt.Node) (*Session, error) {
	if err := s.Valid(); err != nil {
		return nil, err
	}
	if err := role.Valid(); err != nil {
		return nil, err
	}
	sess := &Session{
		id:       uuid.New(),
		engine:   e,
		strategy: s,
		role:     role,
		node:     base,
	}
	e.log.Debug("session started",
		zap.Stringer("id", sess.id),
		zap.Stringer("strategy", s),
		zap.Stringer("role", role))
	return sess, nil
}

// ID returns session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Strategy returns session build strategy.
func (s *Session) Strategy() Strategy { return s.strategy }

// Role returns session trie role.
func (s *Session) Role() TrieType { return s.role }

// Insert validates in and adds its items to the session. Items are
// inserted into the trie on Commit. Unless the engine copies values, in's
// buffers must not be modified while the session or its committed trie is
// in use.
func (s *Session) Insert(in *Input) error {
	kvs, err := in.KeyValues(s.engine.cfg.CopyValues)
	if err != nil {
		return err
	}
	if s.role == StateTrie {
		for i := range kvs {
			if len(kvs[i].Path) != stateKeyLen {
				return fmt.Errorf("%w: key %d: state trie key must have %d nibbles, got %d",
					ErrMalformedKey, i, stateKeyLen, len(kvs[i].Path))
			}
		}
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pending = append(s.pending, kvs...)
	s.finalized = false
	return nil
}

// Put adds a single pair with nibble key (terminator allowed) to the
// session.
func (s *Session) Put(hexKey, value []byte) error {
	in := NewInput(BoundaryLayout, 1)
	in.Add(hexKey, value)
	return s.Insert(in)
}

// Commit builds the trie from all pending pairs and the previously committed
// trie and returns the new root hash. The build is all-or-nothing: on error
// pending pairs are discarded and the session keeps the previously committed
// trie, but it's not finalized until the next successful commit.
func (s *Session) Commit(ctx context.Context) (common.Hash, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var (
		e       = s.engine
		kvs     = s.pending
		start   = time.Now()
		retries uint64
		nodes   int
		root    mpt.Node
		h       common.Hash
		err     error
	)
	s.pending = nil
	s.finalized = false

	switch s.strategy {
	case TwoPhase:
		root, err = e.twoPhase.BuildOnto(ctx, s.node, kvs)
		if err == nil {
			h = e.twoPhase.Commit(root)
		}
	case OLC:
		root, h, retries, nodes, err = s.buildOLC(ctx, kvs)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		updateBuildErrorMetric(s.strategy)
		e.log.Debug("build failed",
			zap.Stringer("id", s.id),
			zap.Stringer("strategy", s.strategy),
			zap.Int("keys", len(kvs)),
			zap.Error(err))
		return common.Hash{}, err
	}

	d := time.Since(start)
	s.node, s.root, s.finalized = root, h, true
	s.stats.Keys += len(kvs)
	s.stats.Commits++
	s.stats.Retries += retries
	s.stats.Nodes += nodes
	s.stats.Duration += d
	e.remember(h, root)
	updateBuildMetrics(s.strategy, s.role, len(kvs), retries, d)
	e.log.Debug("build committed",
		zap.Stringer("id", s.id),
		zap.Stringer("strategy", s.strategy),
		zap.Stringer("role", s.role),
		zap.Int("keys", len(kvs)),
		zap.Uint64("retries", retries),
		zap.Duration("took", d),
		zap.Stringer("root", h))
	return h, nil
}

func (s *Session) buildOLC(ctx context.Context, kvs []mpt.KeyValue) (mpt.Node, common.Hash, uint64, int, error) {
	b := olc.New(s.engine.olcOptions())
	defer b.Release()
	if s.node.Type() != mpt.EmptyT {
		b.Load(s.node)
	}
	if err := b.InsertBatch(ctx, kvs); err != nil {
		return nil, common.Hash{}, b.Retries(), b.Nodes(), err
	}
	root, h := b.Commit()
	return root, h, b.Retries(), b.Nodes(), nil
}

// Root returns the root hash of the last commit. ErrBuildNotFinalized is
// returned if there was no successful commit or there are pairs inserted
// after it.
func (s *Session) Root() (common.Hash, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.finalized {
		return common.Hash{}, ErrBuildNotFinalized
	}
	return s.root, nil
}

// Node returns the root node of the last committed trie.
func (s *Session) Node() (mpt.Node, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.finalized {
		return nil, ErrBuildNotFinalized
	}
	return s.node, nil
}

// Collapse replaces all committed nodes at the specified depth with hash
// nodes to bound memory. The root hash doesn't change, but keys can't be
// inserted into collapsed subtrees anymore (ErrUnresolvedHash).
func (s *Session) Collapse(depth int) error {
	if depth < 0 {
		return fmt.Errorf("negative depth %d", depth)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.finalized {
		return ErrBuildNotFinalized
	}
	s.node = mpt.Collapse(s.node, depth)
	s.engine.remember(s.root, s.node)
	return nil
}

// Stats returns session statistics.
func (s *Session) Stats() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stats
}
