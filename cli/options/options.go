/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/TKONIY/gmpt/pkg/config"
	"github.com/TKONIY/gmpt/pkg/gmpt"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigFile is a flag for commands that use engine configuration.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the configuration file (defaults are used if not found)",
	Value: config.DefaultConfigPath,
}

// Debug is a flag for commands that allow debug logging.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// Workers is a flag overriding the configured number of build workers.
var Workers = cli.IntFlag{
	Name:  "workers, w",
	Usage: "number of goroutines used by a single build (0 means configured value)",
}

// Strategy is a flag for choosing build strategy.
var Strategy = cli.StringFlag{
	Name:  "strategy, s",
	Usage: "build strategy: 2phase or olc",
	Value: gmpt.OLC.String(),
}

// Role is a flag for choosing trie role.
var Role = cli.StringFlag{
	Name:  "role, r",
	Usage: "trie role: state, transaction or receipt",
	Value: gmpt.StateTrie.String(),
}

// Common is a set of flags every trie command has.
var Common = []cli.Flag{ConfigFile, Debug, Workers}

// GetConfigFromContext loads configuration from the file specified in the
// context and applies flag overrides. Missing default config file is not an
// error.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config-file")
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil || ctx.IsSet("config-file") {
		c, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	}
	if w := ctx.Int("workers"); w > 0 {
		cfg.Engine.Workers = w
	}
	return cfg, nil
}

// GetStrategy returns build strategy specified in the context.
func GetStrategy(ctx *cli.Context) (gmpt.Strategy, error) {
	s := ctx.String("strategy")
	if s == "" {
		return gmpt.OLC, nil
	}
	return gmpt.ParseStrategy(s)
}

// GetRole returns trie role specified in the context.
func GetRole(ctx *cli.Context) (gmpt.TrieType, error) {
	r := ctx.String("role")
	if r == "" {
		return gmpt.StateTrie, nil
	}
	return gmpt.ParseTrieType(r)
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.Logger) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.LogTimestamp != nil && !*cfg.LogTimestamp {
		cc.EncoderConfig.TimeKey = zapcore.OmitKey
	}
	cc.Encoding = "console"
	if cfg.LogEncoding != "" {
		cc.Encoding = cfg.LogEncoding
	}
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("could not create dir for logger: %w", err)
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}
