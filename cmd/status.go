package cmd

import (
	"context"
	"errors"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/metrics"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/report"
)

// RunStatus prints the inventory counts.
func RunStatus(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("status", env.Out, "[--textfile PATH]")
	textfile := fs.String("textfile", "", "Write counts as Prometheus gauges to PATH")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}

	counts := env.Reader().Snapshot()
	report.RenderCounts(env.Out, Printer, counts)

	if *textfile != "" {
		reg := metrics.New()
		reg.RecordCounts(counts)
		if err := reg.WriteTextfile(*textfile); err != nil {
			return err
		}
		logging.WithComponent("cli").Info("metrics written", "path", *textfile)
	}
	return nil
}

// RunVerify prints the full status report, optionally pinging through
// every UE.
func RunVerify(ctx context.Context, env *Env, args []string) error {
	opts := report.OptionsFromConfig(env.Config.Report)

	fs := newFlagSet("verify", env.Out, "[-p] [-t TARGET] [-c COUNT]")
	fs.BoolVar(&opts.Ping, "ping", false, "Ping the target through each UE")
	fs.BoolVar(&opts.Ping, "p", false, "Ping (short)")
	fs.StringVar(&opts.Target, "target", opts.Target, "Ping target address")
	fs.StringVar(&opts.Target, "t", opts.Target, "Ping target (short)")
	fs.IntVar(&opts.Count, "count", opts.Count, "Echo requests per UE")
	fs.IntVar(&opts.Count, "c", opts.Count, "Echo requests (short)")
	textfile := fs.String("textfile", "", "Write results as Prometheus gauges to PATH")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 0 {
		return usageErrorf("verify: unexpected argument %q", fs.Arg(0))
	}
	if opts.Count < 1 {
		return usageErrorf("verify: --count must be positive, got %d", opts.Count)
	}

	summary := report.NewReporter(env.Reader(), env.Drivers, env.Pinger).Build(ctx, opts)
	report.Render(env.Out, Printer, summary)

	if *textfile != "" {
		reg := metrics.New()
		reg.RecordSummary(summary)
		if err := reg.WriteTextfile(*textfile); err != nil {
			return err
		}
	}
	return nil
}
