//go:build !linux

package network

import (
	"github.com/vishvananda/netlink"
)

// RealNetlinker is a stub implementation of Netlinker.
type RealNetlinker struct{}

// NewNetlinker always fails off Linux.
func NewNetlinker(namespace string) (*RealNetlinker, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) Namespace() string { return "" }

func (r *RealNetlinker) Close() {}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) LinkSetDown(link netlink.Link) error {
	return ErrNotSupported
}

func (r *RealNetlinker) LinkDel(link netlink.Link) error {
	return ErrNotSupported
}

func (r *RealNetlinker) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return ErrNotSupported
}

func (r *RealNetlinker) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return ErrNotSupported
}

func (r *RealNetlinker) RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) RouteDel(route *netlink.Route) error {
	return ErrNotSupported
}

func (r *RealNetlinker) RuleList(family int) ([]netlink.Rule, error) {
	return nil, ErrNotSupported
}

func (r *RealNetlinker) RuleDel(rule *netlink.Rule) error {
	return ErrNotSupported
}
