package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/capture"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/prompt"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"
)

// OpenCapture opens the packet source for an interface. Tests replace it.
var OpenCapture = func(iface, namespace string) (capture.Source, error) {
	conn, err := capture.Open(iface, namespace)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RunCapture prints packets sent by one UE address.
func RunCapture(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("capture", env.Out, "--src-ip IP | --select [--5-tuple] [--interface IFACE] [--count N]")
	srcIP := fs.String("src-ip", "", "Source IP address to monitor")
	selectUE := fs.Bool("select", false, "Select the UE interactively")
	fiveTuple := fs.Bool("5-tuple", false, "Show IP:port pairs")
	simple := fs.Bool("simple", false, "Show addresses only (default)")
	iface := fs.String("interface", "", "Capture interface (default: the UE owning --src-ip, else any)")
	count := fs.Int("count", 0, "Stop after N packets")
	debug := fs.Bool("debug", false, "Log decode details")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if *fiveTuple && *simple {
		return usageErrorf("capture: --5-tuple and --simple are mutually exclusive")
	}
	if *count < 0 {
		return usageErrorf("capture: --count must not be negative, got %d", *count)
	}
	if *debug {
		logging.Default().SetLevel(logging.LevelDebug)
	}

	reader := env.Reader()
	var src string
	capIface := *iface
	switch {
	case *selectUE:
		ue, err := selectUEFor(env, reader.UEs())
		if errors.Is(err, prompt.ErrCancelled) {
			Printer.Fprintf(env.Out, "\nCancelled by user\n")
			return nil
		}
		if err != nil {
			return err
		}
		src = ue.IP()
		Printer.Fprintf(env.Out, "\nSelected UE: %s\nSelected UE IP: %s\n", ue.Name, src)
		if capIface == "" {
			capIface = ue.Name
		}
	case *srcIP != "":
		src = *srcIP
		if net.ParseIP(src) == nil {
			return usageErrorf("capture: invalid source address %q", src)
		}
		if capIface == "" {
			name, ok := capture.InterfaceFor(reader.UEs(), src)
			if ok {
				capIface = name
				logging.WithComponent("capture").Debug("interface auto-detected", "iface", capIface, "src", src)
			} else {
				capIface = capture.AnyInterface
				Printer.Fprintf(env.Out, "%s\n", tui.Warn(fmt.Sprintf(
					"Warning: no local %s* interface has IP %s; using capture interface '%s'.",
					env.Config.Naming.UEPrefix, src, capIface)))
			}
		}
	default:
		fs.Usage()
		return usageErrorf("capture: either --src-ip or --select must be specified")
	}

	ip := net.ParseIP(src)
	if ip == nil {
		return usageErrorf("capture: invalid source address %q", src)
	}
	if err := requireRoot("capture"); err != nil {
		return err
	}

	source, err := OpenCapture(capIface, env.Namespace)
	if err != nil {
		return fmt.Errorf("unable to open capture interface %s: %w", capIface, err)
	}
	defer source.Close()

	mode := capture.Simple
	if *fiveTuple {
		mode = capture.FiveTuple
	}
	_, err = capture.NewMonitor(source, ip, capIface, mode, *count, env.Out).Run(ctx)
	return err
}

func selectUEFor(env *Env, ues []inventory.UE) (inventory.UE, error) {
	var active []inventory.UE
	var choices []prompt.Choice
	for _, ue := range ues {
		if ue.IP() == "" {
			continue
		}
		active = append(active, ue)
		choices = append(choices, prompt.Choice{
			Label: fmt.Sprintf("%-20s IP: %s", ue.Name, ue.IP()),
			Value: ue.Name,
		})
	}
	if len(active) == 0 {
		return inventory.UE{}, fmt.Errorf("no active UE interfaces with IP addresses found; make sure the UEs are running")
	}

	choice, err := env.Prompt.Select("Active UE Interfaces:", choices)
	if err != nil {
		return inventory.UE{}, err
	}
	for _, ue := range active {
		if ue.Name == choice.Value {
			return ue, nil
		}
	}
	return inventory.UE{}, prompt.ErrCancelled
}
