// Package stats polls per-interface packet and byte counters and derives
// rates from the delta between consecutive readings.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/clock"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
)

// Counters is one cumulative reading of an interface.
type Counters struct {
	RxPackets uint64
	RxBytes   uint64
	TxPackets uint64
	TxBytes   uint64
}

// CounterFetcher reads an interface's counters.
type CounterFetcher interface {
	FetchCounters(iface string) (Counters, error)
}

// LinkFetcher reads counters from netlink link statistics.
type LinkFetcher struct {
	NL network.Netlinker
}

// FetchCounters implements CounterFetcher.
func (f LinkFetcher) FetchCounters(iface string) (Counters, error) {
	link, err := f.NL.LinkByName(iface)
	if err != nil {
		return Counters{}, err
	}
	st := link.Attrs().Statistics
	if st == nil {
		return Counters{}, fmt.Errorf("%s: no link statistics", iface)
	}
	return Counters{
		RxPackets: st.RxPackets,
		RxBytes:   st.RxBytes,
		TxPackets: st.TxPackets,
		TxBytes:   st.TxBytes,
	}, nil
}

// Row is one interface in a sample. OK is false when the read failed.
type Row struct {
	Interface string
	OK        bool
	Current   Counters
	Delta     Counters

	RxPPS float64
	RxBPS float64
	TxPPS float64
	TxBPS float64
}

// Sample is one poll of every interface.
type Sample struct {
	Seq  int
	Time time.Time
	Rows []Row
}

// Sampler polls a fixed set of interfaces.
type Sampler struct {
	fetcher  CounterFetcher
	ifaces   []string
	interval time.Duration
	clock    clock.Clock
	capacity int

	seq     int
	prev    map[string]Counters
	history map[string]*RingBuffer
	log     *logging.Logger
}

// SamplerOption configures the Sampler.
type SamplerOption func(*Sampler)

// WithClock sets the time source.
func WithClock(c clock.Clock) SamplerOption {
	return func(s *Sampler) {
		s.clock = c
	}
}

// WithCapacity sets how many rate points are kept per interface.
// Default: 60
func WithCapacity(n int) SamplerOption {
	return func(s *Sampler) {
		s.capacity = n
	}
}

// NewSampler creates a Sampler and takes the baseline reading.
func NewSampler(fetcher CounterFetcher, ifaces []string, interval time.Duration, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		fetcher:  fetcher,
		ifaces:   ifaces,
		interval: interval,
		clock:    &clock.RealClock{},
		capacity: 60,
		prev:     make(map[string]Counters),
		history:  make(map[string]*RingBuffer),
		log:      logging.WithComponent("stats"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, iface := range ifaces {
		c, err := fetcher.FetchCounters(iface)
		if err != nil {
			// Unreadable at start: the first delta is measured from zero.
			s.log.Debug("baseline read failed", "iface", iface, "error", err)
		}
		s.prev[iface] = c
		s.history[iface] = NewRingBuffer(s.capacity)
	}
	return s
}

// Interfaces returns the polled interfaces.
func (s *Sampler) Interfaces() []string {
	return s.ifaces
}

// Next waits one interval and takes a sample.
func (s *Sampler) Next(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case <-s.clock.After(s.interval):
	}
	return s.take(), nil
}

// Run samples until ctx is done or count samples were taken (0 means no
// limit), calling fn for each. It returns nil when stopped by ctx.
func (s *Sampler) Run(ctx context.Context, count int, fn func(Sample)) error {
	for count == 0 || s.seq < count {
		sample, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(sample)
	}
	return nil
}

// History returns the recent RX byte rates of iface, oldest first.
func (s *Sampler) History(iface string) []float64 {
	if buf, ok := s.history[iface]; ok {
		return buf.Snapshot()
	}
	return []float64{}
}

// PeakRxBPS returns the highest RX byte rate seen on iface in the window.
func (s *Sampler) PeakRxBPS(iface string) float64 {
	if buf, ok := s.history[iface]; ok {
		return buf.Peak()
	}
	return 0
}

func (s *Sampler) take() Sample {
	s.seq++
	sample := Sample{Seq: s.seq, Time: s.clock.Now()}
	seconds := s.interval.Seconds()

	for _, iface := range s.ifaces {
		cur, err := s.fetcher.FetchCounters(iface)
		if err != nil {
			s.log.Debug("counter read failed", "iface", iface, "error", err)
			sample.Rows = append(sample.Rows, Row{Interface: iface})
			continue
		}
		prev := s.prev[iface]
		d := Counters{
			RxPackets: delta(cur.RxPackets, prev.RxPackets),
			RxBytes:   delta(cur.RxBytes, prev.RxBytes),
			TxPackets: delta(cur.TxPackets, prev.TxPackets),
			TxBytes:   delta(cur.TxBytes, prev.TxBytes),
		}
		row := Row{
			Interface: iface,
			OK:        true,
			Current:   cur,
			Delta:     d,
		}
		if seconds > 0 {
			row.RxPPS = float64(d.RxPackets) / seconds
			row.RxBPS = float64(d.RxBytes) / seconds
			row.TxPPS = float64(d.TxPackets) / seconds
			row.TxBPS = float64(d.TxBytes) / seconds
		}
		s.prev[iface] = cur
		s.history[iface].Add(row.RxBPS)
		sample.Rows = append(sample.Rows, row)
	}
	return sample
}

// delta handles counter resets by treating the current value as the delta.
func delta(cur, prev uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
