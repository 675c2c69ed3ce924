/*
Package gmpt builds Ethereum-compatible Merkle Patricia Tries from batches of
key-value pairs using either the two-phase or the OLC strategy. All builds go
through an Engine created once with New (or Preprocess for the process-wide
default one).
*/
package gmpt

import (
	"context"
	"fmt"

	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/TKONIY/gmpt/pkg/core/mpt/olc"
	"github.com/TKONIY/gmpt/pkg/core/mpt/twophase"
	"github.com/TKONIY/gmpt/pkg/crypto/hash"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Engine holds the state shared by all builds: worker pool sizing, the
// two-phase builder and the cache of committed tries. It's safe for
// concurrent use.
type Engine struct {
	cfg      config.EngineConfiguration
	log      *zap.Logger
	workers  int
	twoPhase *twophase.Builder
	roots    *lru.Cache
}

// New creates an engine with the specified configuration. nil logger
// disables logging.
func New(cfg config.EngineConfiguration, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		log:      log,
		workers:  cfg.GetWorkers(),
		twoPhase: twophase.New(cfg.GetWorkers(), cfg.ParallelThreshold),
	}
	if cfg.SessionCacheSize > 0 {
		c, err := lru.New(cfg.SessionCacheSize)
		if err != nil {
			return nil, fmt.Errorf("can't create root cache: %w", err)
		}
		e.roots = c
	}
	hash.Warm(cfg.KeccakWarmup)
	e.log.Debug("engine initialized",
		zap.Int("workers", e.workers),
		zap.Int("parallel threshold", cfg.ParallelThreshold),
		zap.Int("partition size", cfg.PartitionSize),
		zap.Int("cache size", cfg.SessionCacheSize))
	return e, nil
}

// Config returns engine configuration.
func (e *Engine) Config() config.EngineConfiguration {
	return e.cfg
}

// Workers returns the number of goroutines used by a single build.
func (e *Engine) Workers() int {
	return e.workers
}

// NewSession starts an empty build.
func (e *Engine) NewSession(s Strategy, role TrieType) (*Session, error) {
	return e.newSession(s, role, mpt.EmptyNode{})
}

// Resume starts a build extending the committed trie with the specified
// root. The trie must be in the engine cache, that is committed by a
// session of e recently. Empty root is always known.
func (e *Engine) Resume(root common.Hash, s Strategy, role TrieType) (*Session, error) {
	if root == mpt.EmptyRootHash {
		return e.newSession(s, role, mpt.EmptyNode{})
	}
	if e.roots != nil {
		if n, ok := e.roots.Get(root); ok {
			return e.newSession(s, role, n.(mpt.Node))
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRoot, root)
}

// remember puts a committed trie into the cache.
func (e *Engine) remember(h common.Hash, n mpt.Node) {
	if e.roots != nil {
		e.roots.Add(h, n)
	}
}

func (e *Engine) olcOptions() olc.Options {
	return olc.Options{
		Workers:       e.workers,
		PartitionSize: e.cfg.PartitionSize,
		SpinAttempts:  e.cfg.SpinAttempts,
	}
}

// Build builds a trie from in with the specified strategy and returns its
// root hash.
func (e *Engine) Build(ctx context.Context, s Strategy, role TrieType, in *Input) (common.Hash, error) {
	sess, err := e.NewSession(s, role)
	if err != nil {
		return common.Hash{}, err
	}
	if err := sess.Insert(in); err != nil {
		return common.Hash{}, err
	}
	return sess.Commit(ctx)
}

// BuildMPT2Phase builds a trie from in using the two-phase strategy.
func (e *Engine) BuildMPT2Phase(ctx context.Context, role TrieType, in *Input) (common.Hash, error) {
	return e.Build(ctx, TwoPhase, role, in)
}

// BuildMPTOLC builds a trie from in using the OLC strategy.
func (e *Engine) BuildMPTOLC(ctx context.Context, role TrieType, in *Input) (common.Hash, error) {
	return e.Build(ctx, OLC, role, in)
}
