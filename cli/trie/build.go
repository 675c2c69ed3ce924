package trie

import (
	"fmt"

	"github.com/TKONIY/gmpt/cli/options"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func build(ctx *cli.Context) error {
	strategy, err := options.GetStrategy(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
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

	sess, err := e.engine.NewSession(strategy, batches[0].Role)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var (
		commitEach = ctx.Bool("commit-each")
		depth      = ctx.Int("collapse")
	)
	for i, b := range batches {
		if err := sess.Insert(b.Input); err != nil {
			return cli.NewExitError(fmt.Errorf("%s: %w", ctx.Args()[i], err), 1)
		}
		if !commitEach && i != len(batches)-1 {
			continue
		}
		h, err := sess.Commit(c)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("%s: build failed: %w", ctx.Args()[i], err), 1)
		}
		if depth >= 0 {
			if err := sess.Collapse(depth); err != nil {
				return cli.NewExitError(err, 1)
			}
		}
		if commitEach {
			fmt.Fprintf(ctx.App.Writer, "%s: %s\n", ctx.Args()[i], h)
		}
	}

	root, err := sess.Root()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	st := sess.Stats()
	e.log.Info("trie built",
		zap.Stringer("session", sess.ID()),
		zap.Stringer("strategy", strategy),
		zap.Stringer("role", sess.Role()),
		zap.Int("keys", st.Keys),
		zap.Int("commits", st.Commits),
		zap.Uint64("retries", st.Retries),
		zap.Duration("took", st.Duration))
	fmt.Fprintf(ctx.App.Writer, "root: %s\n", root)
	return nil
}
