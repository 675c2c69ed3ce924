package trie

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/TKONIY/gmpt/cli/options"
	"github.com/TKONIY/gmpt/internal/random"
	"github.com/TKONIY/gmpt/pkg/gmpt"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func bench(ctx *cli.Context) error {
	strategies := []gmpt.Strategy{gmpt.TwoPhase, gmpt.OLC}
	if ctx.IsSet("strategy") {
		s, err := options.GetStrategy(ctx)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		strategies = []gmpt.Strategy{s}
	}
	role, err := options.GetRole(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var (
		n        = ctx.Int("count")
		keyLen   = ctx.Int("key-len")
		valueLen = ctx.Int("value-len")
		rounds   = ctx.Int("rounds")
	)
	if n <= 0 || keyLen <= 0 || valueLen <= 0 || rounds <= 0 {
		return cli.NewExitError("count, key-len, value-len and rounds must be positive", 1)
	}
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	c, cancel := newContext()
	defer cancel()

	in := gmpt.NewInput(gmpt.BoundaryLayout, n)
	for _, k := range random.Keys(n, keyLen) {
		in.AddRaw(k, random.Bytes(random.Int(1, valueLen+1)))
	}

	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tROUND\tKEYS\tTOOK\tKEYS/S\tRETRIES\tROOT")
	for _, s := range strategies {
		for r := range rounds {
			sess, err := e.engine.NewSession(s, role)
			if err != nil {
				return cli.NewExitError(err, 1)
			}
			if err := sess.Insert(in); err != nil {
				return cli.NewExitError(err, 1)
			}
			start := time.Now()
			h, err := sess.Commit(c)
			if err != nil {
				return cli.NewExitError(fmt.Errorf("%s build failed: %w", s, err), 1)
			}
			took := time.Since(start)
			st := sess.Stats()
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.0f\t%d\t%s\n", s, r+1, n, took,
				float64(n)/took.Seconds(), st.Retries, h)
			e.log.Debug("bench round completed",
				zap.Stringer("strategy", s),
				zap.Int("round", r+1),
				zap.Duration("took", took),
				zap.Int("nodes", st.Nodes))
		}
	}
	return w.Flush()
}
