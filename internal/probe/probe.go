// Package probe pings a target on behalf of one UE and classifies the
// outcome as success, partial loss or failure.
package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"

	probing "github.com/prometheus-community/pro-bing"
)

// Class buckets a ping outcome.
type Class int

const (
	Success Class = iota
	Partial
	Failure
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case Partial:
		return "partial"
	default:
		return "failure"
	}
}

// Request describes one ping run. Interface scopes the socket to a device
// (a VRF); otherwise Source binds the source address.
type Request struct {
	Target    string
	Count     int
	Timeout   time.Duration
	Interface string
	Source    string
}

// Stats are the raw counters of a run.
type Stats struct {
	Sent   int
	Recv   int
	Loss   float64
	AvgRtt time.Duration
}

// Result is a classified ping run.
type Result struct {
	Request
	Stats
	Class Class
	Err   error
}

// Via names what scoped the ping.
func (r Result) Via() string {
	switch {
	case r.Interface != "":
		return "vrf " + r.Interface
	case r.Source != "":
		return "src " + r.Source
	default:
		return "default"
	}
}

func (r Result) String() string {
	switch r.Class {
	case Success:
		return fmt.Sprintf("OK avg %s", r.AvgRtt.Round(10*time.Microsecond))
	case Partial:
		return fmt.Sprintf("PARTIAL %.0f%% loss", r.Loss)
	default:
		if r.Err != nil {
			return fmt.Sprintf("FAIL %v", r.Err)
		}
		return "FAIL 100% loss"
	}
}

// PingFunc performs the ping. Tests replace it.
var PingFunc = func(ctx context.Context, req Request) (Stats, error) {
	pinger, err := probing.NewPinger(req.Target)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = req.Count
	if req.Timeout > 0 {
		pinger.Timeout = req.Timeout
	}
	pinger.InterfaceName = req.Interface
	pinger.Source = req.Source
	pinger.SetPrivileged(os.Geteuid() == 0)

	if err := pinger.RunWithContext(ctx); err != nil {
		return Stats{}, err
	}

	st := pinger.Statistics()
	return Stats{
		Sent:   st.PacketsSent,
		Recv:   st.PacketsRecv,
		Loss:   st.PacketLoss,
		AvgRtt: st.AvgRtt,
	}, nil
}

// Classify buckets stats. Any error is a failure.
func Classify(st Stats, err error) Class {
	switch {
	case err != nil:
		return Failure
	case st.Sent == 0 || st.Recv == 0:
		return Failure
	case st.Loss > 0:
		return Partial
	default:
		return Success
	}
}

// Prober runs pings, optionally from inside a named network namespace.
type Prober struct {
	Namespace string
	log       *logging.Logger
}

// NewProber creates a Prober.
func NewProber(namespace string) *Prober {
	return &Prober{
		Namespace: namespace,
		log:       logging.WithComponent("probe"),
	}
}

// Ping runs req and classifies it.
func (p *Prober) Ping(ctx context.Context, req Request) Result {
	res := Result{Request: req}
	err := network.InNamespace(p.Namespace, func() error {
		st, err := PingFunc(ctx, req)
		res.Stats = st
		return err
	})
	res.Err = err
	res.Class = Classify(res.Stats, err)
	if res.Class == Failure && res.Loss == 0 {
		res.Loss = 100
	}
	p.log.Debug("ping finished",
		"target", req.Target,
		"via", res.Via(),
		"sent", res.Sent,
		"recv", res.Recv,
		"class", res.Class.String(),
		"error", err)
	return res
}
