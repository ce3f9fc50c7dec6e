// Package cleanup tears down the simulator's kernel footprint.
//
// Teardown runs in dependency order: policy rules, then routing table
// contents, then VRF devices, then the UE interfaces enslaved to them.
// Every step is best effort and runs even if an earlier one failed. The
// run ends with a fresh inventory so callers can tell whether anything
// survived.
package cleanup

import (
	"context"
	"fmt"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/addrpool"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/vishvananda/netlink"
)

// DefaultRuleCap bounds the rule deletion loop.
const DefaultRuleCap = 1000

// Sequencer runs the full teardown.
type Sequencer struct {
	nl      network.Netlinker
	reader  *inventory.Reader
	ruleCap int

	// Pool, when set, has its address range released after the links
	// are gone.
	Pool *addrpool.Pool

	log *logging.Logger
}

// NewSequencer creates a Sequencer. A non-positive ruleCap selects
// DefaultRuleCap.
func NewSequencer(nl network.Netlinker, reader *inventory.Reader, ruleCap int) *Sequencer {
	if ruleCap <= 0 {
		ruleCap = DefaultRuleCap
	}
	return &Sequencer{
		nl:      nl,
		reader:  reader,
		ruleCap: ruleCap,
		log:     logging.WithComponent("cleanup"),
	}
}

// Run executes every step and returns the report.
func (s *Sequencer) Run(ctx context.Context) *Report {
	report := &Report{Before: s.reader.Snapshot()}
	s.log.Info("cleanup started",
		"interfaces", report.Before.Interfaces,
		"vrfs", report.Before.VRFs,
		"rules", report.Before.Rules,
		"tables", report.Before.Tables)

	steps := []func(context.Context, *Report){
		s.deleteRules,
		s.flushTables,
		s.deleteVRFs,
		s.deleteInterfaces,
	}
	if s.Pool != nil {
		steps = append(steps, s.releaseAddresses)
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		step(ctx, report)
	}

	report.Remaining = s.reader.Snapshot()
	s.log.Audit("cleanup", "kernel", map[string]any{
		"clean":    report.Clean(),
		"failures": len(report.Failures()),
	})
	return report
}

func ruleKey(r netlink.Rule) string {
	return fmt.Sprintf("from %s table %d pref %d", r.Src, r.Table, r.Priority)
}

// deleteRules removes the first matching rule and re-queries until none
// remain or the cap is reached. A rule that fails to delete is skipped on
// later queries.
func (s *Sequencer) deleteRules(ctx context.Context, report *Report) {
	step := report.begin(StepRules)
	skip := make(map[string]bool)

	for report.RuleIterations < s.ruleCap {
		if ctx.Err() != nil {
			report.Interrupted = true
			return
		}
		rule, ok := s.nextRule(skip)
		if !ok {
			return
		}
		report.RuleIterations++

		key := ruleKey(rule)
		if err := s.nl.RuleDel(&rule); err != nil {
			s.log.Warn("rule delete failed", "rule", key, "error", err)
			step.fail(key, err)
			skip[key] = true
			continue
		}
		step.ok(key)
	}

	if _, ok := s.nextRule(skip); ok {
		report.Capped = true
		s.log.Warn("rule deletion hit safety cap", "cap", s.ruleCap)
	}
}

func (s *Sequencer) nextRule(skip map[string]bool) (netlink.Rule, bool) {
	for _, r := range s.reader.Rules() {
		if !skip[ruleKey(r)] {
			return r, true
		}
	}
	return netlink.Rule{}, false
}

// flushTables deletes every route of every non-empty table in range.
// Table ids themselves are never removed.
func (s *Sequencer) flushTables(ctx context.Context, report *Report) {
	step := report.begin(StepTables)
	for _, t := range s.reader.Tables() {
		if ctx.Err() != nil {
			report.Interrupted = true
			return
		}
		name := fmt.Sprintf("table %d", t.ID)
		if err := flushTable(s.nl, s.reader, t.ID); err != nil {
			s.log.Warn("table flush failed", "table", t.ID, "error", err)
			step.fail(name, err)
			continue
		}
		step.ok(name)
	}
}

func flushTable(nl network.Netlinker, reader *inventory.Reader, id int) error {
	var firstErr error
	for _, rt := range reader.TableRoutes(id) {
		if err := nl.RouteDel(&rt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sequencer) deleteVRFs(ctx context.Context, report *Report) {
	step := report.begin(StepVRFs)
	removeLinks(ctx, s.nl, s.log, s.reader.VRFs(), step, report)
}

func (s *Sequencer) deleteInterfaces(ctx context.Context, report *Report) {
	step := report.begin(StepInterfaces)
	removeLinks(ctx, s.nl, s.log, s.reader.Interfaces(), step, report)
}

// removeLinks sets each link down and deletes it. A failed set-down is
// logged but the delete is still attempted.
func removeLinks(ctx context.Context, nl network.Netlinker, log *logging.Logger, links []netlink.Link, step *StepReport, report *Report) {
	for _, l := range links {
		if ctx.Err() != nil {
			report.Interrupted = true
			return
		}
		name := network.LinkName(l)
		if err := nl.LinkSetDown(l); err != nil && !network.IsNotFound(err) {
			log.Warn("link down failed", "link", name, "error", err)
		}
		if err := nl.LinkDel(l); err != nil {
			if network.IsNotFound(err) {
				step.ok(name)
				continue
			}
			log.Warn("link delete failed", "link", name, "error", err)
			step.fail(name, err)
			continue
		}
		step.ok(name)
	}
}

func (s *Sequencer) releaseAddresses(_ context.Context, report *Report) {
	step := report.begin(StepAddresses)
	results, err := s.Pool.Delete()
	if err != nil {
		s.log.Warn("address release failed", "error", err)
		step.fail(s.Pool.Interface, err)
		return
	}
	for _, r := range results {
		if r.Status == addrpool.Failed {
			step.fail(r.Addr, r.Err)
		} else {
			step.ok(r.Addr)
		}
	}
}
