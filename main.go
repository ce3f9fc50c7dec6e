package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ian-cs12-NYCU/PacketRusher/cmd"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/brand"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/i18n"
)

var printer = i18n.NewCLIPrinter()

// envCommands need the kernel handle and loaded configuration.
var envCommands = map[string]func(context.Context, *cmd.Env, []string) error{
	"status":  cmd.RunStatus,
	"verify":  cmd.RunVerify,
	"fix":     cmd.RunFix,
	"cleanup": cmd.RunCleanup,
	"reset":   cmd.RunReset,
	"traffic": cmd.RunTraffic,
	"capture": cmd.RunCapture,
	"ips": func(_ context.Context, env *cmd.Env, args []string) error {
		return cmd.RunIPs(env, args)
	},
}

func main() {
	g := cmd.Globals{ConfigFile: brand.DefaultConfigPath()}

	globalFlags := flag.NewFlagSet(brand.BinaryName, flag.ContinueOnError)
	globalFlags.Usage = printUsage
	globalFlags.StringVar(&g.ConfigFile, "config", g.ConfigFile, "Configuration file")
	globalFlags.StringVar(&g.Netns, "netns", "", "Network namespace to operate in")
	globalFlags.StringVar(&g.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	globalFlags.StringVar(&g.LogFormat, "log-format", "text", "Log format (text, json)")
	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(1)
	}
	globalFlags.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			g.ConfigExplicit = true
		}
	})

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	switch command {
	case "check":
		if err := cmd.RunCheck(rest, g.ConfigFile); err != nil {
			printer.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}
		return

	case "version":
		printer.Printf("%s version %s\n", brand.Name, brand.Version)
		printer.Printf("Build: %s\n", brand.BuildTime)
		printer.Printf("Source: %s\n", brand.Repository)
		return

	case "help", "-h", "--help":
		printUsage()
		return
	}

	run, ok := envCommands[command]
	if !ok {
		printer.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := cmd.Setup(g)
	if err != nil {
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, env, rest)
	env.Close()
	if err != nil {
		printer.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cmd.ErrNotRoot) {
			printer.Fprintf(os.Stderr, "Try again with sudo.\n")
		}
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	printer.Printf(`%s - %s

Usage:
  %s [--config FILE] [--netns NAME] [--log-level LEVEL] [--log-format text|json]
        <command> [options]

Inspection:
  status    Count UE interfaces, VRFs, rules and tables
            Options: --textfile <path>
  verify    Detailed per-UE report
            Options: --ping (-p), --target (-t) <ip>, --count (-c) <n>, --textfile <path>
  traffic   Per-interface packet and byte rates
            Options: -i <seconds>, -n <count>, --interfaces a,b
  capture   Show packets sent by one UE
            Options: --src-ip <ip> | --select, --5-tuple, --simple,
                     --interface <iface>, --count <n>, --debug

Teardown (root):
  cleanup   Remove every %s resource (asks for confirmation)
  fix       Remove orphaned rules, VRFs and dead interfaces only
  reset     cleanup, then release the address pool

Address pool (root):
  ips -n NUM        Add the first NUM pool addresses
  ips delete        Remove every pool address
  ips list          Show pool addresses present

Other:
  check [file]      Validate a configuration file
  check --defaults  Print the built-in configuration as HCL
  version           Print version information

Examples:
  %s verify --ping --target 1.1.1.1
  %s traffic -i 2 --interfaces val0001,val0002
  sudo %s capture --select --5-tuple
  echo yes | sudo %s cleanup
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.SimulatorName,
		brand.BinaryName, brand.BinaryName, brand.BinaryName, brand.BinaryName)
}
