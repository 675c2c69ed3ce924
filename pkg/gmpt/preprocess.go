package gmpt

import (
	"context"
	"sync"

	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	defaultLock   sync.Mutex
	defaultEngine *Engine
)

// Preprocess initializes the process-wide engine used by package-level
// build functions. Calling it again with the same configuration does nothing
// and returns the same engine, a different configuration is rejected with
// ErrAlreadyInitialized. The engine logs to the global zap logger.
func Preprocess(cfg config.EngineConfiguration) (*Engine, error) {
	defaultLock.Lock()
	defer defaultLock.Unlock()

	if defaultEngine != nil {
		if defaultEngine.cfg != cfg {
			return nil, ErrAlreadyInitialized
		}
		return defaultEngine, nil
	}
	e, err := New(cfg, zap.L())
	if err != nil {
		return nil, err
	}
	e.log.Info("preprocess completed", zap.Int("workers", e.workers))
	defaultEngine = e
	return e, nil
}

// Default returns the engine created by Preprocess, nil if there is none.
func Default() *Engine {
	defaultLock.Lock()
	defer defaultLock.Unlock()
	return defaultEngine
}

func getDefault() (*Engine, error) {
	e := Default()
	if e == nil {
		return nil, ErrNotInitialized
	}
	return e, nil
}

// BuildMPT2Phase builds a trie using the two-phase strategy of the default
// engine.
func BuildMPT2Phase(ctx context.Context, role TrieType, in *Input) (common.Hash, error) {
	e, err := getDefault()
	if err != nil {
		return common.Hash{}, err
	}
	return e.BuildMPT2Phase(ctx, role, in)
}

// BuildMPTOLC builds a trie using the OLC strategy of the default engine.
func BuildMPTOLC(ctx context.Context, role TrieType, in *Input) (common.Hash, error) {
	e, err := getDefault()
	if err != nil {
		return common.Hash{}, err
	}
	return e.BuildMPTOLC(ctx, role, in)
}
