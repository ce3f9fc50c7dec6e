package inventory

import (
	"sort"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/network"
	"github.com/vishvananda/netlink"
)

// UE describes one simulated UE as seen in the kernel.
type UE struct {
	Name  string   `json:"name"`
	MSIN  string   `json:"msin"`
	State string   `json:"state"`
	Kind  string   `json:"kind"`
	IPv4  []string `json:"ipv4,omitempty"`
	IPv6  []string `json:"ipv6,omitempty"`

	VRF       string `json:"vrf"`
	HasVRF    bool   `json:"has_vrf"`
	VRFTable  uint32 `json:"vrf_table,omitempty"`
	HasRule   bool   `json:"has_rule"`
	RuleTable int    `json:"rule_table,omitempty"`
	Routes    int    `json:"routes"`
}

// IP returns the first IPv4 address, or "".
func (u UE) IP() string {
	if len(u.IPv4) == 0 {
		return ""
	}
	return u.IPv4[0]
}

// UEs describes every UE interface.
func (r *Reader) UEs() []UE {
	ifaces := r.Interfaces()
	if len(ifaces) == 0 {
		return nil
	}
	view := r.load()
	out := make([]UE, 0, len(ifaces))
	for _, l := range ifaces {
		out = append(out, r.describe(l, view))
	}
	return out
}

// UE describes the UE interface called name.
func (r *Reader) UE(name string) (UE, error) {
	link, err := r.nl.LinkByName(name)
	if err != nil {
		return UE{}, err
	}
	return r.describe(link, r.load()), nil
}

// view is the shared state needed to describe UEs.
type view struct {
	vrfs   map[string]*netlink.Vrf
	rules  []netlink.Rule
	tables map[int]int
}

func (r *Reader) load() view {
	v := view{
		vrfs:   make(map[string]*netlink.Vrf),
		rules:  r.Rules(),
		tables: make(map[int]int),
	}
	for _, l := range r.VRFs() {
		vrf, _ := l.(*netlink.Vrf)
		v.vrfs[network.LinkName(l)] = vrf
	}
	for _, t := range r.Tables() {
		v.tables[t.ID] = t.Routes
	}
	return v
}

func (r *Reader) describe(link netlink.Link, v view) UE {
	name := network.LinkName(link)
	msin, _ := r.opts.UE.MSIN(name)
	ue := UE{
		Name:  name,
		MSIN:  msin,
		State: network.OperState(link),
		Kind:  link.Type(),
		VRF:   r.opts.VRF.Name(msin),
	}

	addrs, err := r.nl.AddrList(link, network.FamilyAll)
	if err != nil {
		r.log.Warn("address query failed", "link", name, "error", err)
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			ue.IPv4 = append(ue.IPv4, a.IP.String())
		} else {
			ue.IPv6 = append(ue.IPv6, a.IP.String())
		}
	}
	sort.Strings(ue.IPv4)
	sort.Strings(ue.IPv6)

	if vrf, ok := v.vrfs[ue.VRF]; ok {
		ue.HasVRF = true
		if vrf != nil {
			ue.VRFTable = vrf.Table
		}
	}

	for _, rule := range v.rules {
		if ruleMatches(rule, addrs) {
			ue.HasRule = true
			ue.RuleTable = rule.Table
			ue.Routes = v.tables[rule.Table]
			break
		}
	}
	return ue
}

func ruleMatches(rule netlink.Rule, addrs []netlink.Addr) bool {
	if rule.Src == nil {
		return false
	}
	for _, a := range addrs {
		if a.IP.To4() != nil && rule.Src.Contains(a.IP) {
			return true
		}
	}
	return false
}
