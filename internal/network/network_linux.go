//go:build linux

package network

import (
	"errors"
	"fmt"

	"github.com/ian-cs12-NYCU/PacketRusher/internal/logging"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// RealNetlinker is a concrete implementation of Netlinker backed by a
// netlink handle. The handle may live in another network namespace.
type RealNetlinker struct {
	handle    *netlink.Handle
	namespace string
}

// NewNetlinker opens a netlink handle in the named network namespace, or in
// the current one when namespace is empty.
func NewNetlinker(namespace string) (*RealNetlinker, error) {
	if namespace == "" {
		h, err := netlink.NewHandle()
		if err != nil {
			return nil, fmt.Errorf("failed to open netlink handle: %w", err)
		}
		return &RealNetlinker{handle: h}, nil
	}

	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open netns %s: %w", namespace, err)
	}
	defer ns.Close()

	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink handle in netns %s: %w", namespace, err)
	}
	return &RealNetlinker{handle: h, namespace: namespace}, nil
}

// Namespace returns the namespace the handle is bound to ("" for current).
func (r *RealNetlinker) Namespace() string {
	return r.namespace
}

// Close releases the netlink handle.
func (r *RealNetlinker) Close() {
	if r.handle != nil {
		r.handle.Close()
	}
}

// tolerateDump accepts results from a dump that the kernel interrupted.
// The data may be slightly stale, which is fine for best-effort inventory.
func tolerateDump(op string, err error) error {
	if errors.Is(err, netlink.ErrDumpInterrupted) {
		logging.WithComponent("netlink").Debug("dump interrupted, using partial results", "op", op)
		return nil
	}
	return err
}

// LinkByName retrieves a link by name.
func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return r.handle.LinkByName(name)
}

// LinkList retrieves all links.
func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	links, err := r.handle.LinkList()
	return links, tolerateDump("LinkList", err)
}

// LinkSetDown sets the link down.
func (r *RealNetlinker) LinkSetDown(link netlink.Link) error {
	return r.handle.LinkSetDown(link)
}

// LinkDel deletes a link.
func (r *RealNetlinker) LinkDel(link netlink.Link) error {
	return r.handle.LinkDel(link)
}

// AddrList retrieves a list of addresses for a link.
func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	addrs, err := r.handle.AddrList(link, family)
	return addrs, tolerateDump("AddrList", err)
}

// AddrAdd adds an address to a link.
func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return r.handle.AddrAdd(link, addr)
}

// AddrDel deletes an address from a link.
func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return r.handle.AddrDel(link, addr)
}

// RouteListFiltered retrieves routes matching filter.
func (r *RealNetlinker) RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error) {
	routes, err := r.handle.RouteListFiltered(family, filter, filterMask)
	return routes, tolerateDump("RouteListFiltered", err)
}

// RouteDel deletes a route.
func (r *RealNetlinker) RouteDel(route *netlink.Route) error {
	return r.handle.RouteDel(route)
}

// RuleList lists rules.
func (r *RealNetlinker) RuleList(family int) ([]netlink.Rule, error) {
	rules, err := r.handle.RuleList(family)
	return rules, tolerateDump("RuleList", err)
}

// RuleDel deletes a rule.
func (r *RealNetlinker) RuleDel(rule *netlink.Rule) error {
	return r.handle.RuleDel(rule)
}
