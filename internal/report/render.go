package report

import (
	"io"
	"strings"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/brand"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/probe"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/tui"

	"golang.org/x/text/message"
)

const width = 72

// RenderCounts prints the four inventory counts.
func RenderCounts(w io.Writer, p *message.Printer, c inventory.Counts) {
	p.Fprintf(w, "%s\n", tui.Header("Resource summary"))
	p.Fprintf(w, "  UE interfaces:   %d\n", c.Interfaces)
	p.Fprintf(w, "  VRF devices:     %d\n", c.VRFs)
	p.Fprintf(w, "  Routing rules:   %d\n", c.Rules)
	p.Fprintf(w, "  Routing tables:  %d\n", c.Tables)
}

// Render prints the full verify summary.
func Render(w io.Writer, p *message.Printer, s *Summary) {
	p.Fprintf(w, "%s\n", tui.Rule("=", width))
	p.Fprintf(w, "%s\n", tui.Header(brand.SimulatorName+" UE status"))
	p.Fprintf(w, "%s\n\n", tui.Rule("=", width))

	RenderCounts(w, p, s.Counts)
	p.Fprintln(w)

	if s.Empty() {
		p.Fprintf(w, "%s\n", tui.Warn("No UE interfaces found."))
		p.Fprintf(w, "Start %s to create UEs, then run verify again.\n", brand.SimulatorName)
		return
	}

	p.Fprintf(w, "%s\n", tui.Header("UE interfaces"))
	for _, ue := range s.UEs {
		renderUE(w, p, ue)
	}
	if s.Hidden > 0 {
		p.Fprintf(w, "  ... and %d more UE interfaces\n", s.Hidden)
	}
	p.Fprintln(w)

	p.Fprintf(w, "%s\n", tui.Header("Routing tables"))
	if len(s.Tables) == 0 {
		p.Fprintf(w, "  %s\n", tui.StyleMuted.Render("no routing tables in use"))
	}
	for _, t := range s.Tables {
		p.Fprintf(w, "  table %-4d %d routes\n", t.ID, t.Routes)
	}
	if s.HiddenTables > 0 {
		p.Fprintf(w, "  ... and %d more tables\n", s.HiddenTables)
	}

	if s.Pinged {
		p.Fprintln(w)
		p.Fprintf(w, "%s\n", tui.Header("Connectivity to "+s.Target))
		p.Fprintf(w, "  %s %d  %s %d  %s %d\n",
			tui.Good("success"), s.Tally[probe.Success],
			tui.Warn("partial"), s.Tally[probe.Partial],
			tui.Bad("failure"), s.Tally[probe.Failure])
	}
}

func renderUE(w io.Writer, p *message.Printer, ue UEStatus) {
	ip := ue.IP()
	if ip == "" {
		ip = "no IPv4"
	}

	state := ue.State
	switch state {
	case "UP":
		state = tui.Good(state)
	case "DOWN":
		state = tui.Bad(state)
	default:
		state = tui.Warn(state)
	}

	var details []string
	if ue.HasVRF {
		details = append(details, "vrf "+ue.VRF)
	} else {
		details = append(details, tui.Warn("no vrf"))
	}
	if ue.HasRule {
		details = append(details, p.Sprintf("table %d (%d routes)", ue.RuleTable, ue.Routes))
	} else {
		details = append(details, tui.Warn("no rule"))
	}
	if ue.Driver != "" {
		details = append(details, "driver "+ue.Driver)
	}

	p.Fprintf(w, "  %-8s %-16s %s  %s\n", ue.Name, ip, state, strings.Join(details, ", "))
	if ue.Ping != nil {
		p.Fprintf(w, "           ping %s via %s: %s\n", ue.Ping.Target, ue.Ping.Via(), pingText(*ue.Ping))
	}
}

func pingText(r probe.Result) string {
	switch r.Class {
	case probe.Success:
		return tui.Good(r.String())
	case probe.Partial:
		return tui.Warn(r.String())
	default:
		return tui.Bad(r.String())
	}
}
