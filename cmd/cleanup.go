package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/addrpool"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/brand"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/cleanup"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/report"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"
)

const ruleWidth = 60

// RunCleanup removes every simulator resource after confirmation.
func RunCleanup(ctx context.Context, env *Env, args []string) error {
	return runTeardown(ctx, env, args, "cleanup", false)
}

// RunReset is cleanup followed by releasing the address pool.
func RunReset(ctx context.Context, env *Env, args []string) error {
	return runTeardown(ctx, env, args, "reset", true)
}

func runTeardown(ctx context.Context, env *Env, args []string, name string, withPool bool) error {
	fs := newFlagSet(name, env.Out, "")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if err := requireRoot(name); err != nil {
		return err
	}

	reader := env.Reader()
	seq := cleanup.NewSequencer(env.NL, reader, env.Config.Routing.RuleDeleteCap)

	var pool *addrpool.Pool
	if withPool {
		p, err := addrpool.New(env.NL, env.Config.Pool)
		if err != nil {
			return err
		}
		pool = p
		seq.Pool = pool
	}

	before := reader.Snapshot()
	Printer.Fprintf(env.Out, "%s\n", tui.Header(brand.SimulatorName+" "+name))
	Printer.Fprintf(env.Out, "%s\n", tui.Rule("=", ruleWidth))
	report.RenderCounts(env.Out, Printer, before)
	if pool != nil {
		Printer.Fprintf(env.Out, "  Pool addresses:  %d (%s)\n", poolSize(pool), pool.Interface)
	}
	Printer.Fprintln(env.Out)

	if before.Zero() && (pool == nil || poolSize(pool) == 0) {
		Printer.Fprintf(env.Out, "%s\n", tui.Good("Nothing to clean up."))
		return nil
	}

	desc := "This deletes the resources listed above. Running UEs lose connectivity."
	ok, err := env.Prompt.Confirm("Remove all "+brand.SimulatorName+" resources?", desc)
	if err != nil {
		return err
	}
	if !ok {
		Printer.Fprintf(env.Out, "Cancelled, nothing was changed.\n")
		return nil
	}

	rep := seq.Run(ctx)
	renderTeardown(env.Out, rep)
	if err := finishTeardown(env.Out, reader, rep); err != nil {
		return err
	}
	if step := rep.Step(cleanup.StepAddresses); step != nil && len(step.Failed) > 0 {
		return fmt.Errorf("%w: %d pool addresses could not be released", ErrResidue, len(step.Failed))
	}
	return nil
}

// RunFix removes orphaned resources without touching healthy UEs.
func RunFix(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet("fix", env.Out, "")
	if err := parseFlags(fs, args); err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return err
	}
	if err := requireRoot("fix"); err != nil {
		return err
	}

	reader := env.Reader()
	rep := cleanup.NewFixer(env.NL, reader).Run(ctx)

	if len(rep.Failures()) == 0 && removedTotal(rep) == 0 {
		Printer.Fprintf(env.Out, "%s\n", tui.Good("No orphaned resources found."))
	} else {
		renderTeardown(env.Out, rep)
	}
	if n := len(rep.Failures()); n > 0 {
		return fmt.Errorf("%w: %d orphans could not be removed", ErrResidue, n)
	}
	return nil
}

func poolSize(p *addrpool.Pool) int {
	present, err := p.List()
	if err != nil {
		return 0
	}
	return len(present)
}

func removedTotal(rep *cleanup.Report) int {
	n := 0
	for _, s := range rep.Steps {
		n += len(s.Removed)
	}
	return n
}

func renderTeardown(w io.Writer, rep *cleanup.Report) {
	for _, step := range rep.Steps {
		if len(step.Removed) == 0 && len(step.Failed) == 0 {
			continue
		}
		Printer.Fprintf(w, "%s: %d removed", step.Step, len(step.Removed))
		if len(step.Failed) > 0 {
			Printer.Fprintf(w, ", %s", tui.Bad(fmt.Sprintf("%d failed", len(step.Failed))))
		}
		Printer.Fprintln(w)
		for _, f := range step.Failed {
			Printer.Fprintf(w, "  %s %s: %v\n", tui.Bad("FAIL"), f.Name, f.Err)
		}
	}
	if rep.Capped {
		Printer.Fprintf(w, "%s\n", tui.Warn(fmt.Sprintf("Rule deletion stopped after %d attempts.", rep.RuleIterations)))
	}
	if rep.Interrupted {
		Printer.Fprintf(w, "%s\n", tui.Warn("Interrupted before all steps ran."))
	}
}

func finishTeardown(w io.Writer, reader *inventory.Reader, rep *cleanup.Report) error {
	Printer.Fprintf(w, "\n%s\n", tui.Rule("=", ruleWidth))
	if rep.Clean() {
		Printer.Fprintf(w, "%s\n", tui.Good("All "+brand.SimulatorName+" resources removed."))
		return nil
	}

	Printer.Fprintf(w, "%s\n", tui.Warn("Some resources remain:"))
	for _, link := range reader.Interfaces() {
		Printer.Fprintf(w, "  interface %s\n", network.LinkName(link))
	}
	for _, link := range reader.VRFs() {
		Printer.Fprintf(w, "  vrf %s\n", network.LinkName(link))
	}
	for _, rule := range reader.Rules() {
		Printer.Fprintf(w, "  rule from %s table %d\n", rule.Src, rule.Table)
	}
	for _, t := range reader.Tables() {
		Printer.Fprintf(w, "  table %d (%d routes)\n", t.ID, t.Routes)
	}
	Printer.Fprintf(w, "Stop %s and run %s cleanup again.\n", brand.SimulatorName, brand.BinaryName)
	return fmt.Errorf("%w: %d interfaces, %d vrfs, %d rules, %d tables",
		ErrResidue, rep.Remaining.Interfaces, rep.Remaining.VRFs, rep.Remaining.Rules, rep.Remaining.Tables)
}
