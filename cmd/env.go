package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/brand"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/i18n"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/probe"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/prompt"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/report"
)

// Printer is the global message printer for the CLI
var Printer = i18n.NewCLIPrinter()

var (
	// ErrUsage marks bad flags, arguments or counts.
	ErrUsage = errors.New("usage error")
	// ErrNotRoot is returned by commands that mutate kernel state.
	ErrNotRoot = errors.New("this command must be run as root")
	// ErrResidue is returned when simulator resources survive a teardown.
	ErrResidue = errors.New("simulator resources remain")
)

// Geteuid is swapped out by tests.
var Geteuid = os.Geteuid

// Globals are the flags accepted before the subcommand.
type Globals struct {
	ConfigFile string
	// ConfigExplicit is set when --config was given; a missing explicit
	// file is an error rather than a fallback to defaults.
	ConfigExplicit bool
	Netns          string
	LogLevel       string
	// LogFormat is "text" (default) or "json".
	LogFormat string
}

// Env carries everything a subcommand needs. Tests build one around a
// MemoryNetlinker.
type Env struct {
	Config    *config.Config
	NL        network.Netlinker
	Namespace string

	Out    io.Writer
	Prompt *prompt.Prompter
	Pinger report.Pinger
	// Drivers may be nil when ethtool is unavailable.
	Drivers network.DriverLookup

	closers []func()
}

// Setup loads configuration, configures logging and opens the kernel
// handle. Close must be called when the command is done.
func Setup(g Globals) (*Env, error) {
	cfg, err := config.LoadFileOrDefault(g.ConfigFile, g.ConfigExplicit)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(g, cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	logging.SetPrefix(brand.LowerName)
	logging.SetDefault(logger)

	nl, err := network.NewNetlinker(g.Netns)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:    cfg,
		NL:        nl,
		Namespace: g.Netns,
		Out:       os.Stdout,
		Prompt:    prompt.New(),
		Pinger:    probe.NewProber(g.Netns),
	}
	env.closers = append(env.closers, nl.Close)

	if drivers, err := network.NewDriverLookup(); err == nil {
		env.Drivers = drivers
		env.closers = append(env.closers, drivers.Close)
	} else {
		logging.WithComponent("cli").Debug("driver lookup unavailable", "error", err)
	}
	return env, nil
}

// newLogger builds the logger selected by the global flags, falling back
// to the configured level.
func newLogger(g Globals, cfg *config.Config, out io.Writer) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	logCfg.Output = out

	levelName := cfg.LogLevel
	if g.LogLevel != "" {
		levelName = g.LogLevel
	}
	if levelName != "" {
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return nil, fmt.Errorf("%w: --log-level: %v", ErrUsage, err)
		}
		logCfg.Level = level
	}

	switch g.LogFormat {
	case "", "text":
	case "json":
		logCfg.JSON = true
	default:
		return nil, usageErrorf("--log-format: unknown format %q (text, json)", g.LogFormat)
	}
	return logging.New(logCfg), nil
}

// Close releases the kernel handles.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// Reader returns an inventory reader configured from e.Config.
func (e *Env) Reader() *inventory.Reader {
	return inventory.NewReader(e.NL, inventory.OptionsFromConfig(e.Config))
}

func requireRoot(action string) error {
	if Geteuid() != 0 {
		return fmt.Errorf("%s: %w", action, ErrNotRoot)
	}
	return nil
}
