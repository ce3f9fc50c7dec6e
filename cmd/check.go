package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
)

// RunCheck validates a configuration file and prints the effective values.
// With --defaults it prints the built-in configuration as HCL instead.
func RunCheck(args []string, configFile string) error {
	fs := newFlagSet("check", os.Stdout, "[--defaults] [config-file]")
	defaults := fs.Bool("defaults", false, "Print the built-in configuration as HCL")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if *defaults {
		data, err := config.EncodeHCL(config.Default())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	if fs.NArg() > 0 {
		configFile = fs.Arg(0)
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("check %s: %w", configFile, err)
	}

	Printer.Printf("Configuration valid!\n")
	Printer.Printf("UE interfaces:  %s<MSIN>, VRFs: %s<MSIN>\n", cfg.Naming.UEPrefix, cfg.Naming.VRFPrefix)
	Printer.Printf("Rule subnet:    %s\n", cfg.Routing.RuleSubnet)
	Printer.Printf("Tables:         %d-%d\n", cfg.Routing.TableMin, cfg.Routing.TableMax)
	Printer.Printf("Address pool:   %s.%d-%d/%d on %s\n",
		trimLastOctet(cfg.Pool.Network), cfg.Pool.StartOctet, cfg.Pool.LastOctet, cfg.Pool.PrefixLen, cfg.Pool.Interface)
	Printer.Printf("Ping target:    %s (%d probes, %s timeout)\n",
		cfg.Report.PingTarget, cfg.Report.PingCount, cfg.Report.PingTimeout)
	Printer.Printf("Poll interval:  %s\n", cfg.Monitor.Interval)
	return nil
}

func trimLastOctet(network string) string {
	if i := strings.LastIndex(network, "."); i >= 0 {
		return network[:i]
	}
	return network
}
