// Package config parses cmd/axiomd's command-line configuration,
// grounded on daglabs-btcd's mining/simulator/config.go: a flags
// struct parsed by github.com/jessevdk/go-flags, with defaults rooted
// under ~/.axiomd and a couple of validations run after parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/axiomchain/axiomd/domain/consensus/model"
	"github.com/axiomchain/axiomd/internal/logs"
)

const appName = "axiomd"

// Config holds every flag cmd/axiomd accepts.
type Config struct {
	DataDir string `long:"datadir" description:"Directory to store the block DAG in" default:""`
	LogFile string `long:"logfile" description:"Path to the rotating log file" default:""`
	LogLevel string `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical" default:"info"`

	K             uint32 `long:"k" description:"GHOSTDAG k-cluster bound" default:"18"`
	FinalityDepth uint64 `long:"finalitydepth" description:"Blue-score depth at which the selected-parent chain finalizes" default:"100"`
	MaxMergeset   uint64 `long:"maxmergeset" description:"Reject a block whose mergeset exceeds this size" default:"180"`
	PruningWindow uint64 `long:"pruningwindow" description:"Blue-score depth below finalized_head the store may prune" default:"2000"`
}

// Parse parses os.Args, applies data-directory-relative defaults for
// any flag left unset, and validates the result.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dataDir
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "logs", appName+".log")
	}

	if cfg.K == 0 {
		return nil, fmt.Errorf("--k must be positive")
	}
	if cfg.MaxMergeset == 0 {
		return nil, fmt.Errorf("--maxmergeset must be positive")
	}

	return cfg, nil
}

// Params converts the parsed flags into the model.Params the core's
// processes are constructed with. ExecutorTimeout has no flag and takes
// model.DefaultParams' value.
func (c *Config) Params() *model.Params {
	return &model.Params{
		K:               c.K,
		FinalityDepth:   c.FinalityDepth,
		MaxMergeset:     c.MaxMergeset,
		PruningWindow:   c.PruningWindow,
		ExecutorTimeout: model.DefaultParams().ExecutorTimeout,
	}
}

// LogLevelValue maps the configured level name to logs.Level, falling
// back to LevelInfo for an unrecognized name.
func (c *Config) LogLevelValue() logs.Level {
	switch c.LogLevel {
	case "trace":
		return logs.LevelTrace
	case "debug":
		return logs.LevelDebug
	case "warn":
		return logs.LevelWarn
	case "error":
		return logs.LevelError
	case "critical":
		return logs.LevelCritical
	default:
		return logs.LevelInfo
	}
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving default data directory: %w", err)
	}
	return filepath.Join(home, "."+appName), nil
}
