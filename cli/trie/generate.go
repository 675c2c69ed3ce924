package trie

import (
	"fmt"

	"github.com/TKONIY/gmpt/cli/options"
	"github.com/TKONIY/gmpt/internal/random"
	"github.com/TKONIY/gmpt/pkg/gmpt"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func generate(ctx *cli.Context) error {
	out := ctx.String("out")
	if out == "" {
		return cli.NewExitError("output file is not specified", 1)
	}
	role, err := options.GetRole(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	n := ctx.Int("count")
	if n < 0 {
		return cli.NewExitError("negative count", 1)
	}
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	c, cancel := newContext()
	defer cancel()

	var in *gmpt.Input
	switch role {
	case gmpt.StateTrie:
		in, err = gmpt.StateInput(random.Accounts(n))
	case gmpt.TransactionTrie:
		in, err = gmpt.DeriveListInput(c, random.Transactions(n), e.cfg.Engine.GetWorkers())
	case gmpt.ReceiptTrie:
		in, err = gmpt.DeriveListInput(c, random.Receipts(n), e.cfg.Engine.GetWorkers())
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	err = gmpt.WriteBatchFile(out, &gmpt.Batch{Role: role, Input: in, Compress: ctx.Bool("compress")})
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to write batch: %w", err), 1)
	}
	e.log.Info("batch generated",
		zap.String("file", out),
		zap.Stringer("role", role),
		zap.Int("items", in.InsertNum))
	fmt.Fprintf(ctx.App.Writer, "%d %s items written to %s\n", in.InsertNum, role, out)
	return nil
}
