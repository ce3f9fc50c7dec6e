// Package inventory reads the simulator's footprint from the kernel:
// UE interfaces, VRF devices, policy rules and non-empty routing tables.
//
// Every query is best effort. A failing kernel query is logged and
// treated as an empty result so callers always get a usable answer.
package inventory

import (
	"net"
	"sort"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/config"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/vishvananda/netlink"
)

// Options selects what belongs to the simulator.
type Options struct {
	UE       Matcher
	VRF      Matcher
	RuleNet  *net.IPNet
	TableMin int
	TableMax int
}

// OptionsFromConfig derives reader options from a validated config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UE:       Matcher{Prefix: cfg.Naming.UEPrefix},
		VRF:      Matcher{Prefix: cfg.Naming.VRFPrefix},
		RuleNet:  cfg.Routing.RuleNet(),
		TableMin: cfg.Routing.TableMin,
		TableMax: cfg.Routing.TableMax,
	}
}

// Counts is the number of live objects per category.
type Counts struct {
	Interfaces int `json:"interfaces"`
	VRFs       int `json:"vrfs"`
	Rules      int `json:"rules"`
	Tables     int `json:"tables"`
}

// Zero reports whether nothing of the simulator's footprint remains.
func (c Counts) Zero() bool {
	return c.Interfaces == 0 && c.VRFs == 0 && c.Rules == 0 && c.Tables == 0
}

// Table is a routing table with content.
type Table struct {
	ID     int `json:"id"`
	Routes int `json:"routes"`
}

// Reader queries the kernel through a Netlinker.
type Reader struct {
	nl   network.Netlinker
	opts Options
	log  *logging.Logger
}

// NewReader creates a Reader.
func NewReader(nl network.Netlinker, opts Options) *Reader {
	return &Reader{
		nl:   nl,
		opts: opts,
		log:  logging.WithComponent("inventory"),
	}
}

// Options returns the reader's selection options.
func (r *Reader) Options() Options {
	return r.opts
}

func (r *Reader) links() []netlink.Link {
	links, err := r.nl.LinkList()
	if err != nil {
		r.log.Warn("link query failed", "error", err)
		return nil
	}
	sort.Slice(links, func(i, j int) bool {
		return network.LinkName(links[i]) < network.LinkName(links[j])
	})
	return links
}

// Interfaces returns the non-VRF links matching the UE prefix, by name.
func (r *Reader) Interfaces() []netlink.Link {
	var out []netlink.Link
	for _, l := range r.links() {
		if !network.IsVRF(l) && r.opts.UE.Match(network.LinkName(l)) {
			out = append(out, l)
		}
	}
	return out
}

// VRFs returns the VRF devices matching the VRF prefix, by name.
func (r *Reader) VRFs() []netlink.Link {
	var out []netlink.Link
	for _, l := range r.links() {
		if network.IsVRF(l) && r.opts.VRF.Match(network.LinkName(l)) {
			out = append(out, l)
		}
	}
	return out
}

// InSubnet reports whether rule's source lies within the rule subnet.
func (r *Reader) InSubnet(rule netlink.Rule) bool {
	return rule.Src != nil && r.opts.RuleNet != nil && r.opts.RuleNet.Contains(rule.Src.IP)
}

// Rules returns the IPv4 rules whose source lies within the rule subnet.
func (r *Reader) Rules() []netlink.Rule {
	rules, err := r.nl.RuleList(network.FamilyV4)
	if err != nil {
		r.log.Warn("rule query failed", "error", err)
		return nil
	}
	var out []netlink.Rule
	for _, rule := range rules {
		if r.InSubnet(rule) {
			out = append(out, rule)
		}
	}
	return out
}

// InRange reports whether id is a managed table id.
func (r *Reader) InRange(id int) bool {
	return id >= r.opts.TableMin && id <= r.opts.TableMax
}

// Tables returns the tables in range that hold at least one route, by id.
func (r *Reader) Tables() []Table {
	routes, err := network.TableRoutes(r.nl, 0)
	if err != nil {
		r.log.Warn("route query failed", "error", err)
		return nil
	}
	counts := make(map[int]int)
	for _, rt := range routes {
		if r.InRange(rt.Table) {
			counts[rt.Table]++
		}
	}
	out := make([]Table, 0, len(counts))
	for id, n := range counts {
		out = append(out, Table{ID: id, Routes: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TableRoutes returns the routes held in table id.
func (r *Reader) TableRoutes(id int) []netlink.Route {
	routes, err := network.TableRoutes(r.nl, id)
	if err != nil {
		r.log.Warn("route query failed", "table", id, "error", err)
		return nil
	}
	return routes
}

// Snapshot counts every category.
func (r *Reader) Snapshot() Counts {
	return Counts{
		Interfaces: len(r.Interfaces()),
		VRFs:       len(r.VRFs()),
		Rules:      len(r.Rules()),
		Tables:     len(r.Tables()),
	}
}
