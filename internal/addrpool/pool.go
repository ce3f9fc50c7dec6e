// Package addrpool adds and removes a fixed range of IPv4 addresses on one
// interface. Operations are idempotent and best effort: each address gets
// its own Result and a single failure never stops the batch.
package addrpool

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/vishvananda/netlink"
)

// ErrInvalidCount is returned for counts outside [1, MaxCount].
var ErrInvalidCount = errors.New("invalid address count")

// Status is the outcome for one address.
type Status int

const (
	Added Status = iota
	Skipped
	Removed
	Failed
)

func (s Status) String() string {
	switch s {
	case Added:
		return "Added"
	case Skipped:
		return "Skip existing"
	case Removed:
		return "Removed"
	case Failed:
		return "Failed"
	default:
		return "unknown"
	}
}

// Result reports what happened to one address.
type Result struct {
	Addr   string
	Status Status
	Err    error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %s: %v", r.Status, r.Addr, r.Err)
	}
	return fmt.Sprintf("%s %s", r.Status, r.Addr)
}

// Pool is the address range <Network>.<Start..Last>/<PrefixLen> on Interface.
type Pool struct {
	Interface string
	Network   net.IP
	PrefixLen int
	Start     int
	Last      int

	nl  network.Netlinker
	log *logging.Logger
}

// New builds a Pool from a validated pool config.
func New(nl network.Netlinker, cfg *config.Pool) (*Pool, error) {
	ip := net.ParseIP(cfg.Network).To4()
	if ip == nil {
		return nil, fmt.Errorf("pool network %q is not an IPv4 address", cfg.Network)
	}
	return &Pool{
		Interface: cfg.Interface,
		Network:   ip,
		PrefixLen: cfg.PrefixLen,
		Start:     cfg.StartOctet,
		Last:      cfg.LastOctet,
		nl:        nl,
		log:       logging.WithComponent("addrpool"),
	}, nil
}

// MaxCount is the number of addresses in the range.
func (p *Pool) MaxCount() int {
	return p.Last - p.Start + 1
}

// ValidateCount parses s as an address count in [1, MaxCount].
func (p *Pool) ValidateCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidCount, s)
	}
	if n < 1 || n > p.MaxCount() {
		return 0, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidCount, n, p.MaxCount())
	}
	return n, nil
}

// Addr returns the address for octet.
func (p *Pool) Addr(octet int) *netlink.Addr {
	ip := make(net.IP, net.IPv4len)
	copy(ip, p.Network)
	ip[3] = byte(octet)
	return &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: net.CIDRMask(p.PrefixLen, 32)}}
}

func (p *Pool) present() (netlink.Link, map[string]bool, error) {
	link, err := p.nl.LinkByName(p.Interface)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find interface %s: %w", p.Interface, err)
	}
	addrs, err := p.nl.AddrList(link, network.FamilyV4)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list addresses on %s: %w", p.Interface, err)
	}
	have := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		have[a.IP.String()] = true
	}
	return link, have, nil
}

// Add assigns the first n addresses of the range, skipping those present.
func (p *Pool) Add(n int) ([]Result, error) {
	if n < 1 || n > p.MaxCount() {
		return nil, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidCount, n, p.MaxCount())
	}
	link, have, err := p.present()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		addr := p.Addr(p.Start + i)
		res := Result{Addr: addr.IPNet.String()}
		switch {
		case have[addr.IP.String()]:
			res.Status = Skipped
		default:
			if err := p.nl.AddrAdd(link, addr); err != nil {
				res.Status = Failed
				res.Err = err
				p.log.Warn("address add failed", "addr", res.Addr, "error", err)
			} else {
				res.Status = Added
				p.log.Debug("address added", "addr", res.Addr)
			}
		}
		results = append(results, res)
	}
	p.log.Audit("addrpool.add", p.Interface, map[string]any{"count": n})
	return results, nil
}

// Delete removes every address of the range that is present. Absent
// addresses produce no result, and neither does a missing interface.
func (p *Pool) Delete() ([]Result, error) {
	link, have, err := p.present()
	if network.IsNotFound(err) {
		p.log.Debug("pool interface absent, nothing to release", "iface", p.Interface)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var results []Result
	for octet := p.Start; octet <= p.Last; octet++ {
		addr := p.Addr(octet)
		if !have[addr.IP.String()] {
			continue
		}
		res := Result{Addr: addr.IPNet.String(), Status: Removed}
		if err := p.nl.AddrDel(link, addr); err != nil {
			res.Status = Failed
			res.Err = err
			p.log.Warn("address delete failed", "addr", res.Addr, "error", err)
		}
		results = append(results, res)
	}
	p.log.Audit("addrpool.delete", p.Interface, map[string]any{"removed": Count(results, Removed)})
	return results, nil
}

// List returns the addresses of the range currently present, by octet.
func (p *Pool) List() ([]string, error) {
	_, have, err := p.present()
	if err != nil {
		return nil, err
	}
	var out []string
	for octet := p.Start; octet <= p.Last; octet++ {
		addr := p.Addr(octet)
		if have[addr.IP.String()] {
			out = append(out, addr.IPNet.String())
		}
	}
	return out, nil
}

// Count returns how many results have status s.
func Count(results []Result, s Status) int {
	n := 0
	for _, r := range results {
		if r.Status == s {
			n++
		}
	}
	return n
}
