package trie

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/TKONIY/gmpt/pkg/core/mpt"
	"github.com/TKONIY/gmpt/pkg/gmpt"
	"github.com/ethereum/go-ethereum/common"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func verify(ctx *cli.Context) error {
	batches, err := readBatches(ctx)
	if err != nil {
		return err
	}
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	c, cancel := newContext()
	defer cancel()

	var failed int
	for i, b := range batches {
		path := ctx.Args()[i]
		expected, err := referenceRoot(b.Input)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("%s: %w", path, err), 1)
		}
		for _, s := range []gmpt.Strategy{gmpt.TwoPhase, gmpt.OLC} {
			h, err := e.engine.Build(c, s, b.Role, b.Input)
			if err != nil {
				return cli.NewExitError(fmt.Errorf("%s: %s build failed: %w", path, s, err), 1)
			}
			status := "OK"
			if h != expected {
				status = "MISMATCH"
				failed++
				e.log.Error("root mismatch",
					zap.String("file", path),
					zap.Stringer("strategy", s),
					zap.Stringer("expected", expected),
					zap.Stringer("actual", h))
			}
			fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%s\t%s\n", path, s, h, status)
		}
	}
	if failed != 0 {
		return cli.NewExitError(fmt.Errorf("%d root mismatches", failed), 1)
	}
	return nil
}

// referenceRoot computes the root of in with go-ethereum's StackTrie. Keys
// must have even number of nibbles and be ascending after sorting, pairs
// with empty values are skipped.
func referenceRoot(in *gmpt.Input) (common.Hash, error) {
	kvs, err := in.KeyValues(false)
	if err != nil {
		return common.Hash{}, err
	}
	for i := range kvs {
		if len(kvs[i].Path)%2 != 0 {
			return common.Hash{}, fmt.Errorf("key %d has odd number of nibbles", i)
		}
	}
	slices.SortFunc(kvs, func(a, b mpt.KeyValue) int {
		return bytes.Compare(a.Path, b.Path)
	})
	for i := 1; i < len(kvs); i++ {
		if bytes.Equal(kvs[i-1].Path, kvs[i].Path) {
			return common.Hash{}, fmt.Errorf("%w: %x", gmpt.ErrDuplicateKey, kvs[i].Path)
		}
	}
	st := gethtrie.NewStackTrie(nil)
	for _, kv := range kvs {
		if len(kv.Value) == 0 {
			continue
		}
		if err := st.Update(mpt.HexToKeyBytes(kv.Path), kv.Value); err != nil {
			return common.Hash{}, err
		}
	}
	return st.Hash(), nil
}
