package cleanup

import (
	"context"
	"net"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/vishvananda/netlink"
)

// Fixer removes orphaned resources left behind by a simulator that exited
// uncleanly, leaving healthy UEs alone:
//   - rules in the subnet that point at an empty table
//   - VRF devices whose UE interface is gone
//   - UE interfaces that are down and hold no address
type Fixer struct {
	nl     network.Netlinker
	reader *inventory.Reader
	log    *logging.Logger
}

// NewFixer creates a Fixer.
func NewFixer(nl network.Netlinker, reader *inventory.Reader) *Fixer {
	return &Fixer{
		nl:     nl,
		reader: reader,
		log:    logging.WithComponent("fix"),
	}
}

// Run removes orphans and returns the report. Report.Failures is empty when
// every orphan was removed.
func (f *Fixer) Run(ctx context.Context) *Report {
	report := &Report{Before: f.reader.Snapshot()}

	for _, step := range []func(context.Context, *Report){
		f.orphanRules,
		f.orphanVRFs,
		f.deadInterfaces,
	} {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		step(ctx, report)
	}

	report.Remaining = f.reader.Snapshot()
	f.log.Audit("fix", "kernel", map[string]any{"failures": len(report.Failures())})
	return report
}

func (f *Fixer) orphanRules(ctx context.Context, report *Report) {
	step := report.begin(StepRules)
	for _, rule := range f.reader.Rules() {
		if ctx.Err() != nil {
			report.Interrupted = true
			return
		}
		if len(f.reader.TableRoutes(rule.Table)) > 0 {
			continue
		}
		report.RuleIterations++
		key := ruleKey(rule)
		if err := f.nl.RuleDel(&rule); err != nil {
			f.log.Warn("orphan rule delete failed", "rule", key, "error", err)
			step.fail(key, err)
			continue
		}
		step.ok(key)
	}
}

func (f *Fixer) orphanVRFs(ctx context.Context, report *Report) {
	step := report.begin(StepVRFs)
	opts := f.reader.Options()

	present := make(map[string]bool)
	for _, l := range f.reader.Interfaces() {
		present[network.LinkName(l)] = true
	}

	var orphans []netlink.Link
	for _, l := range f.reader.VRFs() {
		msin, _ := opts.VRF.MSIN(network.LinkName(l))
		if !present[opts.UE.Name(msin)] {
			orphans = append(orphans, l)
		}
	}
	removeLinks(ctx, f.nl, f.log, orphans, step, report)
}

func (f *Fixer) deadInterfaces(ctx context.Context, report *Report) {
	step := report.begin(StepInterfaces)

	var dead []netlink.Link
	for _, l := range f.reader.Interfaces() {
		if l.Attrs().Flags&net.FlagUp != 0 {
			continue
		}
		addrs, err := f.nl.AddrList(l, network.FamilyAll)
		if err != nil {
			f.log.Warn("address query failed", "link", network.LinkName(l), "error", err)
			continue
		}
		if len(addrs) == 0 {
			dead = append(dead, l)
		}
	}
	removeLinks(ctx, f.nl, f.log, dead, step, report)
}
