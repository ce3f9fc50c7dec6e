// Package report builds the UE status summary printed by `uectl verify`.
package report

import (
	"context"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/inventory"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/probe"
)

// Options control what Build collects.
type Options struct {
	Ping     bool
	Target   string
	Count    int
	Timeout  time.Duration
	UECap    int
	TableCap int
}

// OptionsFromConfig returns the configured defaults with pinging off.
func OptionsFromConfig(cfg *config.Report) Options {
	return Options{
		Target:   cfg.PingTarget,
		Count:    cfg.PingCount,
		Timeout:  cfg.PingTimeoutDuration(),
		UECap:    cfg.UEDisplayCap,
		TableCap: cfg.TableDisplayCap,
	}
}

// Pinger runs one classified ping.
type Pinger interface {
	Ping(ctx context.Context, req probe.Request) probe.Result
}

// UEStatus is one displayed UE.
type UEStatus struct {
	inventory.UE
	Driver string
	Ping   *probe.Result
}

// Summary is everything verify prints.
type Summary struct {
	Counts       inventory.Counts
	UEs          []UEStatus
	Hidden       int
	Tables       []inventory.Table
	HiddenTables int

	Pinged bool
	Target string
	Tally  map[probe.Class]int
}

// Empty reports whether no UE interface exists.
func (s *Summary) Empty() bool {
	return s.Counts.Interfaces == 0
}

// Reporter gathers inventory, driver and ping data.
type Reporter struct {
	reader  *inventory.Reader
	drivers network.DriverLookup
	pinger  Pinger
	log     *logging.Logger
}

// NewReporter creates a Reporter. drivers and pinger may be nil.
func NewReporter(reader *inventory.Reader, drivers network.DriverLookup, pinger Pinger) *Reporter {
	return &Reporter{
		reader:  reader,
		drivers: drivers,
		pinger:  pinger,
		log:     logging.WithComponent("report"),
	}
}

// Build collects the summary. Only the first UECap UEs and TableCap
// tables are detailed; the rest are counted in Hidden and HiddenTables.
func (r *Reporter) Build(ctx context.Context, opts Options) *Summary {
	s := &Summary{
		Counts: r.reader.Snapshot(),
		Target: opts.Target,
		Tally:  make(map[probe.Class]int),
	}
	if s.Empty() {
		return s
	}

	ues := r.reader.UEs()
	shown, hidden := capSlice(len(ues), opts.UECap)
	s.Hidden = hidden

	for _, ue := range ues[:shown] {
		st := UEStatus{UE: ue, Driver: r.driver(ue.Name)}
		if opts.Ping && r.pinger != nil && ctx.Err() == nil {
			res := r.pinger.Ping(ctx, pingRequest(ue, opts))
			st.Ping = &res
			s.Tally[res.Class]++
			s.Pinged = true
		}
		s.UEs = append(s.UEs, st)
	}

	tables := r.reader.Tables()
	shown, s.HiddenTables = capSlice(len(tables), opts.TableCap)
	s.Tables = tables[:shown]
	return s
}

// pingRequest scopes the ping through the UE's VRF when it has one,
// otherwise binds the UE's address as source.
func pingRequest(ue inventory.UE, opts Options) probe.Request {
	req := probe.Request{
		Target:  opts.Target,
		Count:   opts.Count,
		Timeout: opts.Timeout,
	}
	if ue.HasVRF {
		req.Interface = ue.VRF
	} else {
		req.Source = ue.IP()
	}
	return req
}

func (r *Reporter) driver(name string) string {
	if r.drivers == nil {
		return ""
	}
	d, err := r.drivers.DriverName(name)
	if err != nil {
		r.log.Debug("driver lookup failed", "link", name, "error", err)
		return ""
	}
	return d
}

func capSlice(n, limit int) (shown, hidden int) {
	if limit <= 0 || n <= limit {
		return n, 0
	}
	return limit, n - limit
}
