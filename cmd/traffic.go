package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/stats"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"
)

// ErrNoInterfaces is returned when traffic has nothing to poll.
var ErrNoInterfaces = errors.New("no interfaces to monitor")

// TrafficOptions are swapped by tests to run against a mock clock.
var TrafficOptions []stats.SamplerOption

// RunTraffic polls UE interface counters and prints a rate table per
// interval.
func RunTraffic(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("traffic", env.Out, "[-i SECONDS] [-n COUNT] [--interfaces a,b]")
	interval := fs.Float64("interval", env.Config.Monitor.IntervalDuration().Seconds(), "Poll interval in seconds")
	fs.Float64Var(interval, "i", *interval, "Poll interval (short)")
	count := fs.Int("count", 0, "Number of samples to show (0 = until interrupted)")
	fs.IntVar(count, "n", 0, "Number of samples (short)")
	ifaceList := fs.String("interfaces", "", "Comma separated interfaces (default: all UE interfaces)")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if *interval <= 0 {
		return usageErrorf("traffic: interval must be positive, got %v", *interval)
	}
	if *count < 0 {
		return usageErrorf("traffic: count must not be negative, got %d", *count)
	}

	ifaces := splitList(*ifaceList)
	if len(ifaces) == 0 {
		for _, link := range env.Reader().Interfaces() {
			ifaces = append(ifaces, network.LinkName(link))
		}
	}
	if len(ifaces) == 0 {
		Printer.Fprintf(env.Out, "No UE interfaces found.\n")
		return ErrNoInterfaces
	}

	var valid []string
	for _, name := range ifaces {
		if _, err := env.NL.LinkByName(name); err == nil {
			valid = append(valid, name)
		}
	}
	if len(valid) == 0 {
		Printer.Fprintf(env.Out, "No valid interfaces found after filtering.\n")
		return ErrNoInterfaces
	}

	Printer.Fprintf(env.Out, "Monitoring %d interface(s): %s\n", len(valid), strings.Join(valid, ", "))
	Printer.Fprintf(env.Out, "%s\n", tui.StyleSubtitle.Render("Press Ctrl-C to stop"))

	period := time.Duration(*interval * float64(time.Second))
	sampler := stats.NewSampler(stats.LinkFetcher{NL: env.NL}, valid, period, TrafficOptions...)
	err := sampler.Run(ctx, *count, func(s stats.Sample) {
		stats.Render(env.Out, Printer, s)
	})
	if ctx.Err() != nil {
		Printer.Fprintf(env.Out, "\nStopped.\n")
	}

	Printer.Fprintf(env.Out, "%s\n", tui.Header("RX rate (peak / average)"))
	for _, name := range sampler.Interfaces() {
		Printer.Fprintf(env.Out, "  %-20s %s / %s\n", name,
			stats.ByteRate(sampler.PeakRxBPS(name)), stats.ByteRate(mean(sampler.History(name))))
	}
	return err
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
