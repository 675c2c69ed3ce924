/*
Package trie implements CLI commands generating batch files and building
tries from them.
*/
package trie

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/TKONIY/gmpt/cli/options"
	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/TKONIY/gmpt/pkg/gmpt"
	"github.com/TKONIY/gmpt/pkg/services/metrics"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// NewCommands returns trie commands.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "generate",
			Usage:     "Generate a batch file with random Ethereum data",
			UsageText: "gmpt generate --out <file> [--role <role>] [--count <n>] [--compress] [--config-file <file>]",
			Action:    generate,
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "out, o", Usage: "output batch file"},
				options.Role,
				cli.IntFlag{Name: "count, n", Value: 1000, Usage: "number of accounts, transactions or receipts"},
				cli.BoolFlag{Name: "compress, c", Usage: "compress batch body"},
			}, options.Common...),
		},
		{
			Name:      "build",
			Usage:     "Build a trie from batch files and print its root",
			UsageText: "gmpt build [--strategy <strategy>] [--commit-each] [--collapse <depth>] <file> [<file>...]",
			Action:    build,
			Flags: append([]cli.Flag{
				options.Strategy,
				cli.BoolFlag{Name: "commit-each", Usage: "commit after every file and print intermediate roots"},
				cli.IntFlag{Name: "collapse", Value: -1, Usage: "collapse committed trie to the depth after every commit"},
			}, options.Common...),
		},
		{
			Name:      "verify",
			Usage:     "Check that both strategies produce the reference root for batch files",
			UsageText: "gmpt verify <file> [<file>...]",
			Action:    verify,
			Flags:     options.Common,
		},
		{
			Name:      "bench",
			Usage:     "Measure build performance on random data",
			UsageText: "gmpt bench [--count <n>] [--rounds <n>] [--strategy <strategy>]",
			Action:    bench,
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "strategy, s", Usage: "build strategy, both are measured if not set"},
				options.Role,
				cli.IntFlag{Name: "count, n", Value: 100000, Usage: "number of keys"},
				cli.IntFlag{Name: "key-len", Value: 32, Usage: "key length in bytes"},
				cli.IntFlag{Name: "value-len", Value: 64, Usage: "maximum value length in bytes"},
				cli.IntFlag{Name: "rounds", Value: 3, Usage: "number of builds per strategy"},
			}, options.Common...),
		},
	}
}

// env is the environment of a command run.
type env struct {
	cfg      config.Config
	log      *zap.Logger
	engine   *gmpt.Engine
	services []*metrics.Service
}

func newEnv(ctx *cli.Context) (*env, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.Logger)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	engine, err := gmpt.New(cfg.Engine, log)
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("failed to create engine: %w", err), 1)
	}
	e := &env{cfg: cfg, log: log, engine: engine}
	for _, s := range []*metrics.Service{
		metrics.NewPrometheusService(cfg.Prometheus, nil, log),
		metrics.NewPprofService(cfg.Pprof, log),
	} {
		if err := s.Start(); err != nil {
			e.close()
			return nil, cli.NewExitError(fmt.Errorf("failed to start service: %w", err), 1)
		}
		e.services = append(e.services, s)
	}
	return e, nil
}

func (e *env) close() {
	for _, s := range e.services {
		s.ShutDown()
	}
	_ = e.log.Sync()
}

// newContext returns a context canceled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func readBatches(ctx *cli.Context) ([]*gmpt.Batch, error) {
	if ctx.NArg() == 0 {
		return nil, cli.NewExitError("no batch files specified", 1)
	}
	batches := make([]*gmpt.Batch, ctx.NArg())
	for i, path := range ctx.Args() {
		b, err := gmpt.ReadBatchFile(path)
		if err != nil {
			return nil, cli.NewExitError(err, 1)
		}
		if i > 0 && b.Role != batches[0].Role {
			return nil, cli.NewExitError(fmt.Errorf("%s: %s batch can't be combined with %s", path, b.Role, batches[0].Role), 1)
		}
		batches[i] = b
	}
	return batches, nil
}
