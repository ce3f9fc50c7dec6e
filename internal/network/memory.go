package network

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// MemoryNetlinker is an in-memory model of the kernel's link, address,
// route and rule tables. It lets tests drive whole scenarios without
// CAP_NET_ADMIN.
type MemoryNetlinker struct {
	mu sync.Mutex

	links     []netlink.Link
	addrs     map[int][]netlink.Addr
	routes    []netlink.Route
	rules     []netlink.Rule
	nextIndex int

	failures map[string]error
	calls    map[string]int

	// StickyRules makes RuleDel report success without removing the rule.
	StickyRules bool
}

// NewMemoryNetlinker returns an empty kernel model with a loopback device.
func NewMemoryNetlinker() *MemoryNetlinker {
	m := &MemoryNetlinker{
		addrs:     make(map[int][]netlink.Addr),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		nextIndex: 1,
	}
	m.AddLink(&netlink.Device{LinkAttrs: netlink.LinkAttrs{
		Name:      "lo",
		Flags:     net.FlagUp | net.FlagLoopback,
		OperState: netlink.OperUnknown,
	}})
	return m
}

// NewUELink builds a tun-style UE link in the given state.
func NewUELink(name string, up bool) netlink.Link {
	attrs := netlink.LinkAttrs{Name: name, OperState: netlink.OperDown}
	if up {
		attrs.Flags = net.FlagUp
		attrs.OperState = netlink.OperUnknown
	}
	return &netlink.Tuntap{LinkAttrs: attrs}
}

// NewVRFLink builds a VRF device bound to table.
func NewVRFLink(name string, table uint32) netlink.Link {
	return &netlink.Vrf{
		LinkAttrs: netlink.LinkAttrs{Name: name, Flags: net.FlagUp, OperState: netlink.OperUp},
		Table:     table,
	}
}

// AddLink inserts link, assigning an index when it has none.
func (m *MemoryNetlinker) AddLink(link netlink.Link) netlink.Link {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := link.Attrs()
	if attrs.Index == 0 {
		attrs.Index = m.nextIndex
	}
	if attrs.Index >= m.nextIndex {
		m.nextIndex = attrs.Index + 1
	}
	m.links = append(m.links, link)
	return link
}

// AddAddr assigns cidr to the named link.
func (m *MemoryNetlinker) AddAddr(name, cidr string) error {
	link, err := m.LinkByName(name)
	if err != nil {
		return err
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return err
	}
	return m.AddrAdd(link, addr)
}

// AddRoute inserts a route into table, optionally bound to a device.
func (m *MemoryNetlinker) AddRoute(table int, dst, dev string) error {
	route := netlink.Route{Table: table}
	if dst != "" {
		_, ipnet, err := net.ParseCIDR(dst)
		if err != nil {
			return err
		}
		route.Dst = ipnet
	}
	if dev != "" {
		link, err := m.LinkByName(dev)
		if err != nil {
			return err
		}
		route.LinkIndex = link.Attrs().Index
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, route)
	return nil
}

// AddRule inserts a source rule pointing at table.
func (m *MemoryNetlinker) AddRule(src string, table, priority int) error {
	_, ipnet, err := net.ParseCIDR(src)
	if err != nil {
		return err
	}
	rule := netlink.NewRule()
	rule.Src = ipnet
	rule.Table = table
	rule.Priority = priority
	rule.Family = FamilyV4

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, *rule)
	return nil
}

// Fail makes op fail with err. key narrows the failure to one link name
// (link and address ops) or table id (route and rule ops); "*" matches all.
func (m *MemoryNetlinker) Fail(op, key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+key] = err
}

// Calls returns how many times op was invoked.
func (m *MemoryNetlinker) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryNetlinker) enter(op, key string) error {
	m.calls[op]++
	if err, ok := m.failures[op+":"+key]; ok {
		return err
	}
	return m.failures[op+":*"]
}

func (m *MemoryNetlinker) findLink(name string) (int, netlink.Link) {
	for i, l := range m.links {
		if l.Attrs().Name == name {
			return i, l
		}
	}
	return -1, nil
}

func (m *MemoryNetlinker) LinkByName(name string) (netlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LinkByName", name); err != nil {
		return nil, err
	}
	_, link := m.findLink(name)
	if link == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	return link, nil
}

func (m *MemoryNetlinker) LinkList() ([]netlink.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("LinkList", ""); err != nil {
		return nil, err
	}
	out := make([]netlink.Link, len(m.links))
	copy(out, m.links)
	return out, nil
}

func (m *MemoryNetlinker) LinkSetDown(link netlink.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := LinkName(link)
	if err := m.enter("LinkSetDown", name); err != nil {
		return err
	}
	_, l := m.findLink(name)
	if l == nil {
		return fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	l.Attrs().Flags &^= net.FlagUp
	l.Attrs().OperState = netlink.OperDown
	return nil
}

func (m *MemoryNetlinker) LinkDel(link netlink.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := LinkName(link)
	if err := m.enter("LinkDel", name); err != nil {
		return err
	}
	i, l := m.findLink(name)
	if l == nil {
		return fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	idx := l.Attrs().Index
	m.links = append(m.links[:i], m.links[i+1:]...)
	delete(m.addrs, idx)

	kept := m.routes[:0]
	for _, r := range m.routes {
		if r.LinkIndex != idx {
			kept = append(kept, r)
		}
	}
	m.routes = kept
	return nil
}

func familyOf(ip net.IP) int {
	if ip.To4() != nil {
		return FamilyV4
	}
	return FamilyV6
}

func (m *MemoryNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := LinkName(link)
	if err := m.enter("AddrList", name); err != nil {
		return nil, err
	}

	var indexes []int
	if link == nil {
		for idx := range m.addrs {
			indexes = append(indexes, idx)
		}
		sort.Ints(indexes)
	} else {
		indexes = []int{link.Attrs().Index}
	}

	var out []netlink.Addr
	for _, idx := range indexes {
		for _, a := range m.addrs[idx] {
			if family == FamilyAll || familyOf(a.IP) == family {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *MemoryNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := LinkName(link)
	if err := m.enter("AddrAdd", name); err != nil {
		return err
	}
	_, l := m.findLink(name)
	if l == nil {
		return fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	idx := l.Attrs().Index
	for _, a := range m.addrs[idx] {
		if a.IP.Equal(addr.IP) {
			return unix.EEXIST
		}
	}
	stored := *addr
	stored.LinkIndex = idx
	m.addrs[idx] = append(m.addrs[idx], stored)
	return nil
}

func (m *MemoryNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := LinkName(link)
	if err := m.enter("AddrDel", name); err != nil {
		return err
	}
	_, l := m.findLink(name)
	if l == nil {
		return fmt.Errorf("%s: %w", name, ErrLinkNotFound)
	}
	idx := l.Attrs().Index
	list := m.addrs[idx]
	for i, a := range list {
		if a.IP.Equal(addr.IP) {
			m.addrs[idx] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return unix.EADDRNOTAVAIL
}

func (m *MemoryNetlinker) RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "*"
	if filter != nil && filterMask&netlink.RT_FILTER_TABLE != 0 {
		key = strconv.Itoa(filter.Table)
	}
	if err := m.enter("RouteListFiltered", key); err != nil {
		return nil, err
	}

	var out []netlink.Route
	for _, r := range m.routes {
		if filter != nil {
			if filterMask&netlink.RT_FILTER_TABLE != 0 && filter.Table != 0 && r.Table != filter.Table {
				continue
			}
			if filterMask&netlink.RT_FILTER_OIF != 0 && r.LinkIndex != filter.LinkIndex {
				continue
			}
		}
		if family != FamilyAll && r.Dst != nil && familyOf(r.Dst.IP) != family {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func sameDst(a, b *net.IPNet) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

func (m *MemoryNetlinker) RouteDel(route *netlink.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RouteDel", strconv.Itoa(route.Table)); err != nil {
		return err
	}
	for i, r := range m.routes {
		if r.Table == route.Table && r.LinkIndex == route.LinkIndex && sameDst(r.Dst, route.Dst) {
			m.routes = append(m.routes[:i], m.routes[i+1:]...)
			return nil
		}
	}
	return unix.ESRCH
}

func (m *MemoryNetlinker) RuleList(family int) ([]netlink.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RuleList", ""); err != nil {
		return nil, err
	}
	var out []netlink.Rule
	for _, r := range m.rules {
		if family == FamilyAll || r.Family == family {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryNetlinker) RuleDel(rule *netlink.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RuleDel", strconv.Itoa(rule.Table)); err != nil {
		return err
	}
	for i, r := range m.rules {
		if r.Table == rule.Table && r.Priority == rule.Priority && sameDst(r.Src, rule.Src) {
			if !m.StickyRules {
				m.rules = append(m.rules[:i], m.rules[i+1:]...)
			}
			return nil
		}
	}
	return unix.ENOENT
}
