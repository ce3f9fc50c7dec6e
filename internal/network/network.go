package network

import (
	"errors"
	"net"
	"strings"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Address families accepted by the list calls.
const (
	FamilyAll = 0
	FamilyV4  = unix.AF_INET
	FamilyV6  = unix.AF_INET6
)

// ErrLinkNotFound is returned by implementations that do not talk to the
// kernel when a link lookup misses.
var ErrLinkNotFound = errors.New("link not found")

// ErrNotSupported is returned on platforms without netlink.
var ErrNotSupported = errors.New("netlink is not supported on this platform")

// Netlinker is an interface that abstracts netlink interactions.
// This allows for mocking netlink calls during unit testing.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkSetDown(link netlink.Link) error
	LinkDel(link netlink.Link) error

	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	AddrAdd(link netlink.Link, addr *netlink.Addr) error
	AddrDel(link netlink.Link, addr *netlink.Addr) error

	RouteListFiltered(family int, filter *netlink.Route, filterMask uint64) ([]netlink.Route, error)
	RouteDel(route *netlink.Route) error

	RuleList(family int) ([]netlink.Rule, error)
	RuleDel(rule *netlink.Rule) error
}

// DriverLookup resolves the kernel driver behind an interface name.
type DriverLookup interface {
	DriverName(iface string) (string, error)
}

// TableRoutes lists the IPv4 routes in table. Table 0 lists every table.
func TableRoutes(nl Netlinker, table int) ([]netlink.Route, error) {
	return nl.RouteListFiltered(FamilyV4, &netlink.Route{Table: table}, netlink.RT_FILTER_TABLE)
}

// IsNotFound reports whether err means the link does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLinkNotFound) {
		return true
	}
	var lnf netlink.LinkNotFoundError
	return errors.As(err, &lnf)
}

// LinkName returns the name of a link, tolerating nil.
func LinkName(link netlink.Link) string {
	if link == nil || link.Attrs() == nil {
		return ""
	}
	return link.Attrs().Name
}

// IsVRF reports whether link is a VRF device.
func IsVRF(link netlink.Link) bool {
	if link == nil {
		return false
	}
	_, ok := link.(*netlink.Vrf)
	return ok || link.Type() == "vrf"
}

// OperState renders the operational state the way `ip link` does.
func OperState(link netlink.Link) string {
	if link == nil || link.Attrs() == nil {
		return "UNKNOWN"
	}
	attrs := link.Attrs()
	state := strings.ToUpper(attrs.OperState.String())
	if state == "UNKNOWN" && attrs.Flags&net.FlagUp != 0 {
		// tun devices report unknown while administratively up
		return "UP"
	}
	return state
}
